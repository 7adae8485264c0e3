// Package otp models the verification step: the fixed-width code entry grid
// and the resend cooldown.
package otp

import "strings"

// Length is the number of characters in a verification code.
const Length = 5

// Grid is the code entry: one single-character slot per code position plus
// the slot that has focus.
type Grid struct {
	Slots [Length]string `json:"slots"`
	Focus int            `json:"focus"`
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Input sets slot index to value, which must be empty or one alphanumeric
// character. Letters are uppercased. A non-empty value moves focus to the
// next slot, stopping at the last one. Rejected input leaves the grid
// unchanged and returns false.
func (g *Grid) Input(index int, value string) bool {
	if index < 0 || index >= Length || len(value) > 1 || !isAlphanumeric(value) {
		return false
	}

	g.Slots[index] = strings.ToUpper(value)
	g.Focus = index
	if value != "" && index < Length-1 {
		g.Focus = index + 1
	}
	return true
}

// Fill enters code one character at a time from the first slot. It stops at
// the first rejected character and returns false in that case.
func (g *Grid) Fill(code string) bool {
	g.Clear()
	for i, r := range code {
		if i >= Length || !g.Input(i, string(r)) {
			return false
		}
	}
	return true
}

// Complete reports whether every slot holds a character.
func (g *Grid) Complete() bool {
	for _, s := range g.Slots {
		if s == "" {
			return false
		}
	}
	return true
}

// Code returns the entered code. ok is false while any slot is empty.
func (g *Grid) Code() (code string, ok bool) {
	if !g.Complete() {
		return "", false
	}
	return strings.Join(g.Slots[:], ""), true
}

// Clear empties every slot and focuses the first.
func (g *Grid) Clear() {
	*g = Grid{}
}
