package parallel

// minBandRows is the smallest number of rows worth a separate work item.
const minBandRows = 16

// Band is a half-open range of rows [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Bands splits height rows into at most n contiguous bands of at least
// minBandRows rows each (except when height itself is smaller).
func Bands(height, n int) []Band {
	if height <= 0 {
		return nil
	}
	n = max(1, min(n, (height+minBandRows-1)/minBandRows))
	bands := make([]Band, 0, n)
	for i := range n {
		y0 := height * i / n
		y1 := height * (i + 1) / n
		if y1 > y0 {
			bands = append(bands, Band{Y0: y0, Y1: y1})
		}
	}
	return bands
}

// ForEachBand calls fn for each band of height rows on the pool and waits
// for all of them. A nil or closed pool runs fn on the calling goroutine.
func ForEachBand(p *WorkerPool, height int, fn func(b Band)) {
	if p == nil || !p.IsRunning() {
		for _, b := range Bands(height, 1) {
			fn(b)
		}
		return
	}
	bands := Bands(height, p.Workers()*2)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { fn(b) }
	}
	p.ExecuteAll(work)
}
