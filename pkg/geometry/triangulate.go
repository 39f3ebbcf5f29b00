package geometry

// Triangulate splits a simple counter-clockwise ring into triangles by ear
// clipping. It returns index triples into p, each counter-clockwise.
func (p Polygon) Triangulate() [][3]int {
	n := len(p)
	if n < 3 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	var out [][3]int
	for guard := 0; len(idx) > 3 && guard < n*n; guard++ {
		clipped := false
		for i := range idx {
			a := idx[(i+len(idx)-1)%len(idx)]
			b := idx[i]
			c := idx[(i+1)%len(idx)]
			if !p.isEar(idx, a, b, c) {
				continue
			}
			out = append(out, [3]int{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			break
		}
	}
	if len(idx) == 3 {
		out = append(out, [3]int{idx[0], idx[1], idx[2]})
	}
	return out
}

func (p Polygon) isEar(idx []int, a, b, c int) bool {
	pa, pb, pc := p[a], p[b], p[c]
	if pb.Sub(pa).Cross(pc.Sub(pb)) <= 0 {
		return false
	}
	for _, k := range idx {
		if k == a || k == b || k == c {
			continue
		}
		if inTriangle(p[k], pa, pb, pc) {
			return false
		}
	}
	return true
}

func inTriangle(pt, a, b, c Vector2) bool {
	d1 := b.Sub(a).Cross(pt.Sub(a))
	d2 := c.Sub(b).Cross(pt.Sub(b))
	d3 := a.Sub(c).Cross(pt.Sub(c))
	return d1 >= 0 && d2 >= 0 && d3 >= 0
}
