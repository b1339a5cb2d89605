package texpack

// Allocator creates images. Every Executor is an Allocator.
type Allocator interface {
	NewImage(width, height int, format PixelFormat) (Image, error)
}

// TargetPair is the ping-pong pair of output images. Both images share one
// resolution and format. The images stay in their slots; Swap flips which
// slot plays the first and which the second role.
//
// TargetPair is not safe for concurrent use.
type TargetPair struct {
	slots [2]Image
	first int
}

// Ensure makes both targets res x res images of format, allocating an
// image when its slot is empty, released, or of another size or format.
// Matching images are kept. It reports whether anything was allocated.
//
// On failure every held image is released and the pair is left empty.
func (t *TargetPair) Ensure(alloc Allocator, res int, format PixelFormat) (bool, error) {
	allocated := false
	for i, img := range t.slots {
		if matches(img, res, format) {
			continue
		}
		if img != nil {
			img.Release()
			t.slots[i] = nil
		}
		next, err := alloc.NewImage(res, res, format)
		if err != nil {
			t.Release()
			return allocated, &AllocationError{Width: res, Height: res, Format: format, Err: err}
		}
		t.slots[i] = next
		allocated = true
	}
	return allocated, nil
}

func matches(img Image, res int, format PixelFormat) bool {
	return img != nil && !img.Released() &&
		img.Width() == res && img.Height() == res && img.Format() == format
}

// First returns the image in the first role, or nil.
func (t *TargetPair) First() Image { return t.slots[t.first] }

// Second returns the image in the second role, or nil. It holds the result
// of a completed packing call.
func (t *TargetPair) Second() Image { return t.slots[1-t.first] }

// Swap exchanges the roles of the two images.
func (t *TargetPair) Swap() { t.first = 1 - t.first }

// Ready reports whether both targets are allocated and not released.
func (t *TargetPair) Ready() bool {
	for _, img := range t.slots {
		if img == nil || img.Released() {
			return false
		}
	}
	return true
}

// Release releases both images and clears the pair. It is safe to call
// more than once.
func (t *TargetPair) Release() {
	for i, img := range t.slots {
		if img != nil {
			img.Release()
		}
		t.slots[i] = nil
	}
	t.first = 0
}
