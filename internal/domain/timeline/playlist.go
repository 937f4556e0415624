package timeline

// Playlist interleaves segments with the transitions that bridge them.
// bridges[i] joins segments[i] and segments[i+1]; an empty entry means that
// transition was not produced and the segments are joined directly.
func Playlist(segments, bridges []string) []string {
	out := make([]string, 0, len(segments)*2)
	for i, s := range segments {
		out = append(out, s)
		if i < len(bridges) && i < len(segments)-1 && bridges[i] != "" {
			out = append(out, bridges[i])
		}
	}
	return out
}

// CountBridges reports how many transitions were produced.
func CountBridges(bridges []string) int {
	n := 0
	for _, b := range bridges {
		if b != "" {
			n++
		}
	}
	return n
}
