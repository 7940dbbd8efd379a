package vkng

// table hands out the integer handles the renderer sees for driver objects.
// Handle 0 is never issued.
type table[T any] struct {
	next    uint64
	objects map[uint64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{objects: make(map[uint64]T)}
}

func (t *table[T]) add(object T) uint64 {
	t.next++
	t.objects[t.next] = object
	return t.next
}

func (t *table[T]) get(handle uint64) T {
	return t.objects[handle]
}

func (t *table[T]) lookup(handle uint64) (T, bool) {
	object, ok := t.objects[handle]
	return object, ok
}

func (t *table[T]) remove(handle uint64) (T, bool) {
	object, ok := t.objects[handle]
	if ok {
		delete(t.objects, handle)
	}
	return object, ok
}

func (t *table[T]) len() int {
	return len(t.objects)
}
