//go:build headless

package main

func NewEbitenOutput(input *InputLatch) (VideoOutput, error) {
	return NewHeadlessOutput(), nil
}
