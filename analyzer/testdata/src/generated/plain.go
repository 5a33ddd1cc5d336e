package generated

func alsoFused() int {
	x, y := 0, 0
	for i := 0; i < 8; i++ {
		x += i
	}
	for j := 0; j < 8; j++ { // want `loop can be fused with the preceding loop at line 5`
		y += j
	}
	return x * y
}
