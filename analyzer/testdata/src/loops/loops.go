// Package loops has pairs of counted loops, some of which can be fused.
package loops

func fused() int {
	x, y := 1, 1
	for i := 1; i < 0xFFFF; i *= 2 {
		x += i % 5
	}
	for j := 1; j < 0xFFFF; j *= 2 { // want `loop can be fused with the preceding loop at line 6`
		y += j % 7
	}
	return x + y
}

func three() int {
	a, b, c := 0, 0, 0
	for i := 0; i < 100; i++ {
		a += i
	}
	for j := 0; j < 100; j++ { // want `loop can be fused with the preceding loop at line 17`
		b += j
	}
	for k := 0; k < 100; k++ {
		c += k
	}
	return a + b + c
}

func differentStops() int {
	x, y := 1, 1
	for i := 1; i < 0xFFFF; i *= 2 {
		x += i % 5
	}
	for j := 1; j < 0xFF; j *= 2 {
		y += j % 7
	}
	return x + y
}

func dependent() int {
	x, y := 1, 1
	for i := 0; i < 10; i++ {
		x += i
	}
	for j := 0; j < 10; j++ {
		y += x
	}
	return y
}

func indexed(a []int) int {
	s, t := 0, 0
	for i := 0; i < 10; i++ {
		s += a[i]
	}
	for j := 0; j < 10; j++ {
		t += a[j]
	}
	return s + t
}

func single(n int) int {
	s := 0
	for i := 0; i < 10; i++ {
		s += n
	}
	return s
}
