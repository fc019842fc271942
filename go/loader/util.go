package loader

func getMagic(p []byte) []byte {
	if len(p) < 4 {
		return p
	}
	return p[:4]
}
