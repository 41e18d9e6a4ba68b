package mapper

// Resolve reconciles per-camera candidate sets into at most one owner per
// face. Cameras are processed strictly in configuration order and the
// first camera to claim a face keeps it; later cameras retain only the
// faces no earlier camera took.
//
// First-claim-wins is a policy, not a geometric necessity: reordering the
// configuration list changes ownership wherever candidate sets overlap.
//
// owners maps every face to its camera index or Unowned. owned lists each
// camera's surviving faces in ascending order.
func Resolve(faceCount int, candidates [][]int) (owners []int, owned [][]int) {
	owners = make([]int, faceCount)
	for i := range owners {
		owners[i] = Unowned
	}

	owned = make([][]int, len(candidates))
	for ci, set := range candidates {
		for _, fi := range set {
			if fi < 0 || fi >= faceCount {
				continue
			}
			if owners[fi] != Unowned {
				continue
			}
			owners[fi] = ci
			owned[ci] = append(owned[ci], fi)
		}
	}

	return owners, owned
}
