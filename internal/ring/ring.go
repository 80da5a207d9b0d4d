// Package ring implementa un buffer circular genérico de capacidad fija.
// Al llenarse, Push descarta siempre el elemento más antiguo.
package ring

// Buffer es una cola FIFO acotada. No es segura para uso concurrente.
type Buffer[T any] struct {
	items []T
	head  int // índice del elemento más antiguo
	size  int
}

// New crea un Buffer con la capacidad dada (mínimo 1).
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push añade v al final. Si el buffer está lleno, desaloja el más antiguo
// y lo devuelve con evicted=true.
func (b *Buffer[T]) Push(v T) (old T, evicted bool) {
	capacity := len(b.items)
	if b.size < capacity {
		b.items[(b.head+b.size)%capacity] = v
		b.size++
		return old, false
	}
	old = b.items[b.head]
	b.items[b.head] = v
	b.head = (b.head + 1) % capacity
	return old, true
}

// Values devuelve una copia de los elementos, del más antiguo al más reciente.
func (b *Buffer[T]) Values() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Oldest devuelve el elemento más antiguo.
func (b *Buffer[T]) Oldest() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[b.head], true
}

// Newest devuelve el elemento más reciente.
func (b *Buffer[T]) Newest() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

// Len devuelve el número de elementos almacenados.
func (b *Buffer[T]) Len() int { return b.size }

// Cap devuelve la capacidad fija.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// Reset vacía el buffer manteniendo la capacidad.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head = 0
	b.size = 0
}
