package game

// ShortLabel abbreviates a wallet-style identity to "ABCD...WXYZ" for display.
// Identities of ten characters or fewer are returned unchanged.
func ShortLabel(identity string) string {
	r := []rune(identity)
	if len(r) <= 10 {
		return identity
	}
	return string(r[:4]) + "..." + string(r[len(r)-4:])
}
