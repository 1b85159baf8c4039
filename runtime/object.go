package runtime

import "github.com/ternlang/tern/unit"

// Object is a managed heap object: a class instance, an array, or a string.
// The payload slices are segregated by width the same way instance slots
// are assigned at link time. Objects are always handled by pointer.
type Object struct {
	class   *TypeDescriptor
	monitor Monitor

	f32  []uint32
	f64  []uint64
	fref []*Object

	arr *arrayData
	str string
}

type arrayData struct {
	length int32
	w32    []uint32
	w64    []uint64
	refs   []*Object
}

// Class returns the object's runtime type.
func (o *Object) Class() *TypeDescriptor { return o.class }

// IsArray reports whether the object is an array instance.
func (o *Object) IsArray() bool { return o.arr != nil }

// Length returns an array's element count, or -1 for non-arrays.
func (o *Object) Length() int32 {
	if o.arr == nil {
		return -1
	}
	return o.arr.length
}

// Text returns a string object's payload.
func (o *Object) Text() string { return o.str }

// Array element accessors. Bounds are the compiled code's responsibility;
// out-of-range indexes fault like any Go slice access.

func (o *Object) Ref(i int32) *Object       { return o.arr.refs[i] }
func (o *Object) SetRef(i int32, v *Object) { o.arr.refs[i] = v }

func (o *Object) Word32(i int32) uint32       { return o.arr.w32[i] }
func (o *Object) SetWord32(i int32, v uint32) { o.arr.w32[i] = v }

func (o *Object) Word64(i int32) uint64       { return o.arr.w64[i] }
func (o *Object) SetWord64(i int32, v uint64) { o.arr.w64[i] = v }

// elementWidth returns the storage width of an array type's elements.
func elementWidth(t *TypeDescriptor) unit.Width {
	c := t.component
	if c.kind == KindPrimitive {
		return c.width
	}
	return unit.WidthRef
}
