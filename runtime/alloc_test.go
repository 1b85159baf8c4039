package runtime

import "testing"

func TestAllocObject(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	obj := g.rt.AllocObject(ctx, uint32(g.circleType), from)
	if obj == nil {
		t.Fatalf("AllocObject failed: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}
	if obj.Class() != g.class(t, "Circle") {
		t.Errorf("allocated class = %s, want Circle", obj.Class().Name())
	}
	if obj.IsArray() {
		t.Error("class instance should not be an array")
	}
	if obj.Length() != -1 {
		t.Errorf("Length = %d, want -1 for a non-array", obj.Length())
	}
	if !obj.Class().Initialized() {
		t.Error("allocation should have initialized the class")
	}
}

// TestAllocObjectRejectsUninstantiable covers the three shapes of type
// that can never be instantiated directly: abstract classes, interfaces,
// and array types through the object entry point.
func TestAllocObjectRejectsUninstantiable(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	if g.rt.AllocObject(ctx, uint32(g.shapeType), from) != nil {
		t.Fatal("allocating an abstract class should fail")
	}
	ex := takePending(t, ctx, g.rt.InstantiationClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "Shape cannot be instantiated" {
		t.Errorf("message = %q", msg)
	}

	if g.rt.AllocObject(ctx, uint32(g.drawableType), from) != nil {
		t.Fatal("allocating an interface should fail")
	}
	takePending(t, ctx, g.rt.InstantiationClass)

	if g.rt.AllocObject(ctx, uint32(g.circleArrType), from) != nil {
		t.Fatal("allocating an array type through AllocObject should fail")
	}
	takePending(t, ctx, g.rt.InstantiationClass)
}

func TestAllocObjectUnresolvedType(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	if g.rt.AllocObject(ctx, uint32(g.phantomType), from) != nil {
		t.Fatal("allocating an undefined type should fail")
	}
	ex := takePending(t, ctx, g.rt.TypeNotFoundClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "unresolved type: Phantom" {
		t.Errorf("message = %q", msg)
	}
}

func TestAllocArray(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	arr := g.rt.AllocArray(ctx, uint32(g.circleArrType), from, 5)
	if arr == nil {
		t.Fatalf("AllocArray failed: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}
	if !arr.IsArray() {
		t.Fatal("result should be an array")
	}
	if arr.Length() != 5 {
		t.Errorf("Length = %d, want 5", arr.Length())
	}
	if arr.Class().Name() != "Circle[]" {
		t.Errorf("class = %s, want Circle[]", arr.Class().Name())
	}
	if arr.Ref(0) != nil {
		t.Error("elements should start nil")
	}
	circle := g.alloc(t, ctx, g.circleType)
	arr.SetRef(2, circle)
	if arr.Ref(2) != circle {
		t.Error("SetRef/Ref roundtrip failed")
	}

	// Zero length is legal.
	empty := g.rt.AllocArray(ctx, uint32(g.circleArrType), from, 0)
	if empty == nil || empty.Length() != 0 {
		t.Error("zero-length allocation failed")
	}

	// Wide elements through the plain entry point.
	longs := g.rt.AllocArray(ctx, uint32(g.longArrType), from, 3)
	if longs == nil {
		t.Fatalf("AllocArray(long[]) failed: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}
	longs.SetWord64(1, 1<<40)
	if longs.Word64(1) != 1<<40 {
		t.Error("SetWord64/Word64 roundtrip failed")
	}
}

func TestAllocArrayRejectsNonArrayType(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	if g.rt.AllocArray(ctx, uint32(g.otherType), from, 3) != nil {
		t.Fatal("allocating a class through AllocArray should fail")
	}
	ex := takePending(t, ctx, g.rt.InstantiationClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "Other is not an array type" {
		t.Errorf("message = %q", msg)
	}
}

func TestAllocArrayNegativeLength(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	if g.rt.AllocArray(ctx, uint32(g.circleArrType), from, -1) != nil {
		t.Fatal("negative length should fail")
	}
	ex := takePending(t, ctx, g.rt.NegativeArraySizeClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "negative array size: -1" {
		t.Errorf("message = %q", msg)
	}

	if g.rt.CheckAndAllocArray(ctx, uint32(g.intArrType), from, -5) != nil {
		t.Fatal("negative length should fail on filled-array sites too")
	}
	ex = takePending(t, ctx, g.rt.NegativeArraySizeClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "negative array size: -5" {
		t.Errorf("message = %q", msg)
	}
}

// TestCheckAndAllocArray verifies the filled-array variant: narrow and
// reference element widths pass, wide ones are a link error because the
// call site passes elements in 32-bit units.
func TestCheckAndAllocArray(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	ints := g.rt.CheckAndAllocArray(ctx, uint32(g.intArrType), from, 3)
	if ints == nil {
		t.Fatalf("CheckAndAllocArray(int[]) failed: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}
	ints.SetWord32(0, 41)
	if ints.Word32(0) != 41 {
		t.Error("SetWord32/Word32 roundtrip failed")
	}

	refs := g.rt.CheckAndAllocArray(ctx, uint32(g.circleArrType), from, 2)
	if refs == nil {
		t.Fatalf("CheckAndAllocArray(Circle[]) failed: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}

	if g.rt.CheckAndAllocArray(ctx, uint32(g.longArrType), from, 2) != nil {
		t.Fatal("filled allocation of a wide array should fail")
	}
	ex := takePending(t, ctx, g.rt.IncompatibleLinkageClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "filled array of wide type long[]" {
		t.Errorf("message = %q", msg)
	}
}

// TestCheckedAllocVerifiesReferrerAccess exercises the checked variants
// against a type that is not public: same-unit callers pass, a second
// unit's callers do not, and the unchecked variant never looks.
func TestCheckedAllocVerifiesReferrerAccess(t *testing.T) {
	g := loadGeometry(t, Options{})
	c := loadClient(t, g)
	ctx := g.rt.NewContext()

	if g.rt.AllocObject(ctx, uint32(c.hiddenType), c.run) == nil {
		t.Fatalf("unchecked alloc should skip access: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}

	if g.rt.AllocObjectChecked(ctx, uint32(c.hiddenType), c.run) != nil {
		t.Fatal("checked alloc of a non-public foreign type should fail")
	}
	ex := takePending(t, ctx, g.rt.IllegalAccessClass)
	if msg := g.rt.ThrowableMessage(ex); msg != "type Hidden is not accessible from Client" {
		t.Errorf("message = %q", msg)
	}

	// Arrays take their element's visibility.
	if g.rt.AllocArrayChecked(ctx, uint32(c.hiddenArrType), c.run, 2) != nil {
		t.Fatal("checked array alloc of a non-public element type should fail")
	}
	takePending(t, ctx, g.rt.IllegalAccessClass)

	// Same-unit callers see the type.
	from := g.method(t, "Circle", "compute", "()V")
	if g.rt.AllocObjectChecked(ctx, uint32(g.hiddenType), from) == nil {
		t.Fatalf("same-unit checked alloc failed: %s", g.rt.ThrowableMessage(ctx.PendingException()))
	}
}

// TestHeapAccounting verifies that the heap charges the width-segregated
// slot sizes and returns budget on release.
func TestHeapAccounting(t *testing.T) {
	g := loadGeometry(t, Options{})
	ctx := g.rt.NewContext()
	heap := g.rt.Heap()

	bootstrap := int64(objectHeaderSize+slotRefSize) + int64(objectHeaderSize+len("out of memory"))
	if heap.Used() != bootstrap {
		t.Errorf("bootstrap usage = %d, want %d", heap.Used(), bootstrap)
	}

	before := heap.Used()
	g.alloc(t, ctx, g.circleType)
	circleSize := int64(objectHeaderSize + 2*slot32Size + slot64Size + slotRefSize)
	if got := heap.Used() - before; got != circleSize {
		t.Errorf("Circle charge = %d, want %d", got, circleSize)
	}

	before = heap.Used()
	from := g.method(t, "Circle", "compute", "()V")
	g.rt.AllocArray(ctx, uint32(g.intArrType), from, 10)
	if got := heap.Used() - before; got != objectHeaderSize+10*slot32Size {
		t.Errorf("int[10] charge = %d, want %d", got, int64(objectHeaderSize+10*slot32Size))
	}

	heap.Release(circleSize)
	if heap.Used() != before+objectHeaderSize+10*slot32Size-circleSize {
		t.Error("Release did not return budget")
	}
}

// TestAllocOutOfMemory verifies that exhaustion installs the preallocated
// out-of-memory instance rather than allocating a fresh throwable.
func TestAllocOutOfMemory(t *testing.T) {
	// Budget for the bootstrap allocations and nothing more.
	g := loadGeometry(t, Options{HeapLimit: 160})
	ctx := g.rt.NewContext()
	from := g.method(t, "Circle", "compute", "()V")

	if g.rt.AllocObject(ctx, uint32(g.circleType), from) != nil {
		t.Fatal("allocation should fail under an exhausted budget")
	}
	ex := takePending(t, ctx, g.rt.OutOfMemoryClass)
	if ex != g.rt.oom {
		t.Error("pending exception should be the preallocated instance")
	}
	if msg := g.rt.ThrowableMessage(ex); msg != "out of memory" {
		t.Errorf("message = %q", msg)
	}
}

func TestHeapLimitDefaults(t *testing.T) {
	rt := NewRuntime(Options{})
	if rt.Heap().Limit() != DefaultHeapLimit {
		t.Errorf("Limit = %d, want %d", rt.Heap().Limit(), DefaultHeapLimit)
	}
}
