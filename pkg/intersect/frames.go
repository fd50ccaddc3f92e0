package intersect

import "github.com/go-gl/mathgl/mgl64"

// Frames holds the window, projection, view and model matrix stacks of a
// traversal. Stacked matrices are never modified after they are pushed, so
// intersection records may keep pointers to them.
type Frames struct {
	window     []*mgl64.Mat4
	projection []*mgl64.Mat4
	view       []*mgl64.Mat4
	model      []*mgl64.Mat4
	version    uint64
}

func top(s []*mgl64.Mat4) *mgl64.Mat4 {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// Window returns the current window matrix, or nil.
func (f *Frames) Window() *mgl64.Mat4 { return top(f.window) }

// Projection returns the current projection matrix, or nil.
func (f *Frames) Projection() *mgl64.Mat4 { return top(f.projection) }

// View returns the current view matrix, or nil.
func (f *Frames) View() *mgl64.Mat4 { return top(f.view) }

// Model returns the current model matrix, or nil.
func (f *Frames) Model() *mgl64.Mat4 { return top(f.model) }

// PushWindow pushes m and returns the func that pops it.
func (f *Frames) PushWindow(m mgl64.Mat4) func() {
	return f.push(&f.window, m)
}

// PushProjection pushes m and returns the func that pops it.
func (f *Frames) PushProjection(m mgl64.Mat4) func() {
	return f.push(&f.projection, m)
}

// PushView pushes m and returns the func that pops it.
func (f *Frames) PushView(m mgl64.Mat4) func() {
	return f.push(&f.view, m)
}

// PushModel pushes m and returns the func that pops it.
func (f *Frames) PushModel(m mgl64.Mat4) func() {
	return f.push(&f.model, m)
}

func (f *Frames) push(s *[]*mgl64.Mat4, m mgl64.Mat4) func() {
	*s = append(*s, &m)
	f.version++
	depth := len(*s)
	return func() {
		if len(*s) != depth {
			panic("intersect: unbalanced matrix stack")
		}
		(*s)[depth-1] = nil
		*s = (*s)[:depth-1]
		f.version++
	}
}

// Composed returns the matrix taking model coordinates to the given frame,
// built from whichever stacks are in use. It reports false when every
// relevant stack is empty, meaning the identity.
func (f *Frames) Composed(frame Frame) (mgl64.Mat4, bool) {
	m := mgl64.Ident4()
	ok := false
	mul := func(p *mgl64.Mat4) {
		if p != nil {
			m = m.Mul4(*p)
			ok = true
		}
	}
	switch frame {
	case FrameWindow:
		mul(f.Window())
		fallthrough
	case FrameProjection:
		mul(f.Projection())
		fallthrough
	case FrameView:
		mul(f.View())
		fallthrough
	case FrameModel:
		mul(f.Model())
	}
	return m, ok
}

// Depth returns the size of each stack, in window, projection, view, model
// order.
func (f *Frames) Depth() [4]int {
	return [4]int{len(f.window), len(f.projection), len(f.view), len(f.model)}
}

// Version changes whenever any stack changes.
func (f *Frames) Version() uint64 {
	return f.version
}

// Reset empties every stack.
func (f *Frames) Reset() {
	f.window = f.window[:0]
	f.projection = f.projection[:0]
	f.view = f.view[:0]
	f.model = f.model[:0]
	f.version++
}
