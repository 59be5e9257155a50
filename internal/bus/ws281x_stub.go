//go:build !pi

package bus

import "fmt"

type WS281x struct{}

func OpenWS281x(_ string, _ int) (*WS281x, error) {
	return nil, fmt.Errorf("the ws281x driver needs a build with the pi tag")
}

func (w *WS281x) Render(_ []uint32) error { return nil }
func (w *WS281x) Close() error            { return nil }
