package explain

func differentStops() int {
	x, y := 1, 1
	for i := 1; i < 0xFFFF; i *= 2 {
		x += i % 5
	}
	for j := 1; j < 0xFF; j *= 2 { // want `loop not fused with the preceding loop: loop stops are not equal: i64 65535, i64 255`
		y += j % 7
	}
	return x + y
}

func dependent() int {
	x, y := 1, 1
	for i := 0; i < 10; i++ {
		x += i
	}
	for j := 0; j < 10; j++ { // want `loop not fused with the preceding loop: loops access a common memory location`
		y += x
	}
	return y
}

func fused() int {
	x, y := 0, 0
	for i := 0; i < 8; i++ {
		x += i
	}
	for j := 0; j < 8; j++ { // want `loop can be fused with the preceding loop at line 27`
		y += j
	}
	return x * y
}
