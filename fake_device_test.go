package fieldplot

import (
	"fmt"

	"github.com/gogpu/fieldplot/plotcore"
)

type blitCall struct {
	binding       plotcore.BindingID
	width, height int
	rect          plotcore.Rect
}

// fakeDevice records every protocol call so tests can assert on call
// order and arguments. Failure injection fields make the corresponding
// operation fail once until cleared.
type fakeDevice struct {
	calls []string

	nextID uint64
	data   map[plotcore.BufferID][]byte
	bound  map[plotcore.BindingID]plotcore.BufferID

	createErr   error
	registerErr error
	acquireErr  error
	releaseErr  error
	blitErr     error
	presentErr  error

	blits    []blitCall
	presents int
	titles   []string
}

var (
	_ plotcore.Device      = (*fakeDevice)(nil)
	_ plotcore.TitleSetter = (*fakeDevice)(nil)
)

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		data:  make(map[plotcore.BufferID][]byte),
		bound: make(map[plotcore.BindingID]plotcore.BufferID),
	}
}

func (d *fakeDevice) record(op string) { d.calls = append(d.calls, op) }

func (d *fakeDevice) CreateBuffer(size int) (plotcore.BufferID, error) {
	d.record("create")
	if d.createErr != nil {
		return plotcore.InvalidID, d.createErr
	}
	d.nextID++
	id := plotcore.BufferID(d.nextID)
	d.data[id] = make([]byte, size)
	return id, nil
}

func (d *fakeDevice) DestroyBuffer(id plotcore.BufferID) error {
	d.record("destroy")
	if _, ok := d.data[id]; !ok {
		return fmt.Errorf("destroy: unknown buffer %d", id)
	}
	for bid, buf := range d.bound {
		if buf == id {
			return fmt.Errorf("destroy: buffer %d still bound as %d", id, bid)
		}
	}
	delete(d.data, id)
	return nil
}

func (d *fakeDevice) Register(id plotcore.BufferID, width, height int) (plotcore.BindingID, error) {
	d.record("register")
	if d.registerErr != nil {
		return plotcore.InvalidID, d.registerErr
	}
	if _, ok := d.data[id]; !ok {
		return plotcore.InvalidID, fmt.Errorf("register: unknown buffer %d", id)
	}
	d.nextID++
	bid := plotcore.BindingID(d.nextID)
	d.bound[bid] = id
	return bid, nil
}

func (d *fakeDevice) Unregister(id plotcore.BindingID) error {
	d.record("unregister")
	if _, ok := d.bound[id]; !ok {
		return fmt.Errorf("unregister: unknown binding %d", id)
	}
	delete(d.bound, id)
	return nil
}

func (d *fakeDevice) AcquireWrite(id plotcore.BufferID) ([]byte, error) {
	d.record("acquire")
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	buf, ok := d.data[id]
	if !ok {
		return nil, fmt.Errorf("acquire: unknown buffer %d", id)
	}
	return buf, nil
}

func (d *fakeDevice) ReleaseWrite(id plotcore.BufferID) error {
	d.record("release")
	if d.releaseErr != nil {
		return d.releaseErr
	}
	if _, ok := d.data[id]; !ok {
		return fmt.Errorf("release: unknown buffer %d", id)
	}
	return nil
}

func (d *fakeDevice) Blit(binding plotcore.BindingID, width, height int, rect plotcore.Rect) error {
	d.record("blit")
	if d.blitErr != nil {
		return d.blitErr
	}
	if _, ok := d.bound[binding]; !ok {
		return fmt.Errorf("blit: unknown binding %d", binding)
	}
	d.blits = append(d.blits, blitCall{binding: binding, width: width, height: height, rect: rect})
	return nil
}

func (d *fakeDevice) Present() error {
	d.record("present")
	if d.presentErr != nil {
		return d.presentErr
	}
	d.presents++
	return nil
}

func (d *fakeDevice) Close() error {
	d.record("close")
	return nil
}

func (d *fakeDevice) SetTitle(title string) {
	d.titles = append(d.titles, title)
}

// callsSince returns the calls recorded after position mark.
func (d *fakeDevice) callsSince(mark int) []string {
	return d.calls[mark:]
}
