package queues

import (
	"iter"
	"slices"
	"strings"
	"unsafe"

	"lab0/errors"
)

const (
	// queues shorter than this are sorted through a slice of node pointers,
	// longer ones with a merge sort over the nodes themselves
	sliceSortThreshold = 64

	headerSize  = int(unsafe.Sizeof(Queue{}))
	elementSize = int(unsafe.Sizeof(element{}))
)

type element struct {
	next  *element
	value string
}

// Queue is a singly linked queue of strings with O(1) access to both ends.
// A nil *Queue is an absent queue: every method accepts it and reports
// failure or does nothing.
// Attention, it's not thread-safe.
type Queue struct {
	head  *element
	tail  *element
	size  int
	alloc Allocator
	// header is true while the queue holds the block charged by New
	header bool
}

// Option configures a Queue created by New.
type Option func(q *Queue)

// WithAllocator makes the queue charge its storage to a.
func WithAllocator(a Allocator) Option {
	return func(q *Queue) {
		q.alloc = a
	}
}

// New creates an empty queue. It returns nil if the allocator refuses the
// queue header.
func New(opts ...Option) *Queue {
	q := &Queue{}
	for _, opt := range opts {
		opt(q)
	}
	if !q.allocator().Alloc(headerSize) {
		return nil
	}
	q.header = true
	return q
}

func (q *Queue) allocator() Allocator {
	if q.alloc == nil {
		return HeapAllocator{}
	}
	return q.alloc
}

// newElement obtains a node and a private copy of s. On failure nothing
// stays charged to the allocator.
func (q *Queue) newElement(s string) *element {
	a := q.allocator()
	if !a.Alloc(elementSize) {
		return nil
	}
	if !a.Alloc(len(s) + 1) {
		a.Release(elementSize)
		return nil
	}
	return &element{value: strings.Clone(s)}
}

func (q *Queue) releaseElement(e *element) {
	a := q.allocator()
	a.Release(len(e.value) + 1)
	a.Release(elementSize)
	e.next = nil
	e.value = ""
}

// Free releases every element and the queue itself. It is a no-op on a nil
// queue. The queue must not be used afterwards.
func (q *Queue) Free() {
	if q == nil {
		return
	}
	for e := q.head; e != nil; {
		next := e.next
		q.releaseElement(e)
		e = next
	}
	q.head, q.tail, q.size = nil, nil, 0
	if q.header {
		q.allocator().Release(headerSize)
		q.header = false
	}
}

// InsertHead puts a copy of s at the head of the queue.
// It returns false if q is nil or the allocation failed, in which case the
// queue is left unchanged.
func (q *Queue) InsertHead(s string) bool {
	if q == nil {
		return false
	}
	e := q.newElement(s)
	if e == nil {
		return false
	}
	e.next = q.head
	q.head = e
	if q.tail == nil {
		q.tail = e
	}
	q.size++
	return true
}

// InsertTail puts a copy of s at the tail of the queue.
// It returns false if q is nil or the allocation failed, in which case the
// queue is left unchanged.
func (q *Queue) InsertTail(s string) bool {
	if q == nil {
		return false
	}
	e := q.newElement(s)
	if e == nil {
		return false
	}
	if q.tail != nil {
		q.tail.next = e
	} else {
		q.head = e
	}
	q.tail = e
	q.size++
	return true
}

// detachHead unlinks the head element. Bounds checking should be done by the caller.
func (q *Queue) detachHead() *element {
	e := q.head
	q.head = e.next
	if q.head == nil {
		q.tail = nil
	}
	q.size--
	return e
}

// RemoveHead removes the head element and returns its value.
// It returns false if q is nil or empty.
func (q *Queue) RemoveHead() (string, bool) {
	if q.IsEmpty() {
		return "", false
	}
	e := q.detachHead()
	v := e.value
	q.releaseElement(e)
	return v, true
}

// RemoveHeadInto removes the head element and copies at most len(buf)-1
// bytes of its value into buf followed by a 0 terminator. It returns the
// number of value bytes copied. An empty buf receives nothing but the
// element is still removed.
// It returns false if q is nil or empty.
func (q *Queue) RemoveHeadInto(buf []byte) (int, bool) {
	if q.IsEmpty() {
		return 0, false
	}
	e := q.detachHead()
	n := 0
	if len(buf) > 0 {
		n = copy(buf[:len(buf)-1], e.value)
		buf[n] = 0
	}
	q.releaseElement(e)
	return n, true
}

// Size returns the number of elements, 0 for a nil queue.
func (q *Queue) Size() int {
	if q == nil {
		return 0
	}
	return q.size
}

// IsEmpty reports whether the queue is nil or holds no element.
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

// Reverse inverts the order of the elements by relinking them in place.
func (q *Queue) Reverse() {
	if q.IsEmpty() {
		return
	}
	var prev *element
	cur := q.head
	q.tail = cur
	for cur != nil {
		next := cur.next
		cur.next = prev
		prev = cur
		cur = next
	}
	q.head = prev
}

// Sort orders the elements ascending by byte-wise value comparison,
// relinking the existing elements. No element is allocated or released.
func (q *Queue) Sort() {
	if q.Size() < 2 {
		return
	}

	if q.size < sliceSortThreshold {
		q.sortByIndex()
		return
	}

	q.head = mergeSort(q.head)
	tail := q.head
	for tail.next != nil {
		tail = tail.next
	}
	q.tail = tail
}

// sortByIndex sorts a slice of element pointers and relinks the chain in that order.
func (q *Queue) sortByIndex() {
	elems := make([]*element, 0, q.size)
	for e := q.head; e != nil; e = e.next {
		elems = append(elems, e)
	}
	slices.SortStableFunc(elems, func(a, b *element) int {
		return strings.Compare(a.value, b.value)
	})
	for i := 0; i < len(elems)-1; i++ {
		elems[i].next = elems[i+1]
	}
	last := elems[len(elems)-1]
	last.next = nil
	q.head = elems[0]
	q.tail = last
}

func mergeSort(head *element) *element {
	if head == nil || head.next == nil {
		return head
	}

	// Find middle using slow/fast pointers
	slow, fast := head, head.next
	for fast != nil && fast.next != nil {
		slow = slow.next
		fast = fast.next.next
	}

	mid := slow.next
	slow.next = nil

	return merge(mergeSort(head), mergeSort(mid))
}

func merge(a, b *element) *element {
	var dummy element
	tail := &dummy

	for a != nil && b != nil {
		if strings.Compare(a.value, b.value) <= 0 {
			tail.next = a
			a = a.next
		} else {
			tail.next = b
			b = b.next
		}
		tail = tail.next
	}

	if a != nil {
		tail.next = a
	} else {
		tail.next = b
	}

	return dummy.next
}

// Values returns an iterator over the values from head to tail.
func (q *Queue) Values() iter.Seq[string] {
	return func(yield func(string) bool) {
		if q == nil {
			return
		}
		for e := q.head; e != nil; e = e.next {
			if !yield(e.value) {
				return
			}
		}
	}
}

func (q *Queue) String() string {
	if q == nil {
		return "NULL"
	}
	strBuilder := strings.Builder{}
	strBuilder.WriteString("[")
	for e := q.head; e != nil; e = e.next {
		strBuilder.WriteString(e.value)
		if e.next != nil {
			strBuilder.WriteString(", ")
		}
	}
	strBuilder.WriteString("]")
	return strBuilder.String()
}

// Validate checks the structural invariants of the queue: size matches the
// reachable elements, the tail is the last reachable element and an empty
// queue has neither head nor tail. A nil queue is valid.
func (q *Queue) Validate() error {
	if q == nil {
		return nil
	}
	if q.size < 0 {
		return errors.ErrQueueCorrupted.GenWithStackByArgs("negative size")
	}
	if q.size == 0 {
		if q.head != nil || q.tail != nil {
			return errors.ErrQueueCorrupted.GenWithStackByArgs("empty queue has dangling head or tail")
		}
		return nil
	}
	if q.head == nil || q.tail == nil {
		return errors.ErrQueueCorrupted.GenWithStackByArgs("non-empty queue lacks head or tail")
	}
	if q.tail.next != nil {
		return errors.ErrQueueCorrupted.GenWithStackByArgs("tail is linked to another element")
	}

	count := 0
	var last *element
	for e := q.head; e != nil; e = e.next {
		count++
		// a cycle would run past size forever
		if count > q.size {
			return errors.ErrQueueCorrupted.GenWithStackByArgs("more elements reachable than recorded size")
		}
		last = e
	}
	if count != q.size {
		return errors.ErrQueueCorrupted.GenWithStackByArgs("fewer elements reachable than recorded size")
	}
	if last != q.tail {
		return errors.ErrQueueCorrupted.GenWithStackByArgs("tail is not the last reachable element")
	}
	return nil
}
