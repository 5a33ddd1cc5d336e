// Code generated by hand for tests. DO NOT EDIT.

package generated

func fused() int {
	x, y := 1, 1
	for i := 1; i < 0xFFFF; i *= 2 {
		x += i % 5
	}
	for j := 1; j < 0xFFFF; j *= 2 {
		y += j % 7
	}
	return x + y
}
