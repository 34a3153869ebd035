//go:build !linux && !darwin

package main

import "golang.org/x/term"

func setKeyMode(fd int) error {
	_, err := term.MakeRaw(fd)
	return err
}
