package node

import "github.com/ByLCY/quire/scaled"

// IgnoreDepth in VList.PrevDepth suppresses interline glue before the next box.
const IgnoreDepth scaled.Scaled = -65536000

// List is a linked list with a cached tail.
type List struct {
	Head Node
	Tail Node
}

// Empty reports whether the list has no nodes.
func (l *List) Empty() bool { return l.Head == nil }

// Append links the chain starting at n to the end of l.
func (l *List) Append(n Node) {
	if n == nil {
		return
	}
	if l.Head == nil {
		l.Head = n
	} else {
		l.Tail.SetNext(n)
	}
	l.Tail = Last(n)
}

// Push links the chain starting at n to the front of l.
func (l *List) Push(n Node) {
	if n == nil {
		return
	}
	last := Last(n)
	last.SetNext(l.Head)
	if l.Head == nil {
		l.Tail = last
	}
	l.Head = n
}

// Take detaches and returns the whole chain.
func (l *List) Take() Node {
	h := l.Head
	l.Head, l.Tail = nil, nil
	return h
}

// Reset points l at an existing chain.
func (l *List) Reset(head Node) {
	l.Head = head
	l.Tail = nil
	if head != nil {
		l.Tail = Last(head)
	}
}

// VList is a vertical list under construction; PrevDepth is the depth of
// the last box appended, used to compute interline glue.
type VList struct {
	List
	PrevDepth scaled.Scaled
}

// NewVListBuilder returns an empty vertical list that will not insert
// interline glue before its first box.
func NewVListBuilder() *VList {
	return &VList{PrevDepth: IgnoreDepth}
}

// Last returns the final node of the chain starting at n.
func Last(n Node) Node {
	if n == nil {
		return nil
	}
	for n.Next() != nil {
		n = n.Next()
	}
	return n
}

// Len counts the nodes of a chain.
func Len(n Node) int {
	c := 0
	for ; n != nil; n = n.Next() {
		c++
	}
	return c
}

// Chain links the given nodes in order and returns the head.
func Chain(nodes ...Node) Node {
	var head, tail Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if head == nil {
			head = n
		} else {
			tail.SetNext(n)
		}
		tail = Last(n)
	}
	return head
}

// Slice returns the nodes of a chain in order.
func Slice(n Node) []Node {
	var out []Node
	for ; n != nil; n = n.Next() {
		out = append(out, n)
	}
	return out
}

// Flush releases the glue references held by a chain and everything
// nested inside it. The nodes themselves become garbage.
func Flush(n Node) {
	for n != nil {
		next := n.Next()
		switch t := n.(type) {
		case *Box:
			Flush(t.List)
		case *Glue:
			if t.Spec != nil {
				t.Spec.Release()
			}
			Flush(t.Leader)
		case *Ins:
			Flush(t.List)
			if t.SplitTop != nil {
				t.SplitTop.Release()
			}
		case *Adjust:
			Flush(t.List)
		case *Disc:
			Flush(t.Pre)
			Flush(t.Post)
		case *Ligature:
			Flush(t.Components)
		}
		n.SetNext(nil)
		n = next
	}
}

// CopyList duplicates a chain. Glue specs are shared, not copied.
func CopyList(n Node) Node {
	var head, tail Node
	for ; n != nil; n = n.Next() {
		c := copyNode(n)
		if head == nil {
			head = c
		} else {
			tail.SetNext(c)
		}
		tail = c
	}
	return head
}

func copyNode(n Node) Node {
	switch t := n.(type) {
	case *Char:
		c := *t
		c.next = nil
		return &c
	case *Box:
		c := *t
		c.next = nil
		c.List = CopyList(t.List)
		return &c
	case *Rule:
		c := *t
		c.next = nil
		return &c
	case *Ins:
		c := *t
		c.next = nil
		c.List = CopyList(t.List)
		if c.SplitTop != nil {
			c.SplitTop.AddRef()
		}
		return &c
	case *Mark:
		c := *t
		c.next = nil
		return &c
	case *Adjust:
		c := *t
		c.next = nil
		c.List = CopyList(t.List)
		return &c
	case *Ligature:
		c := *t
		c.next = nil
		c.Components = CopyList(t.Components)
		return &c
	case *Disc:
		c := *t
		c.next = nil
		c.Pre = CopyList(t.Pre)
		c.Post = CopyList(t.Post)
		return &c
	case *Whatsit:
		c := *t
		c.next = nil
		return &c
	case *Math:
		c := *t
		c.next = nil
		return &c
	case *Glue:
		c := *t
		c.next = nil
		if c.Spec != nil {
			c.Spec.AddRef()
		}
		c.Leader = CopyList(t.Leader)
		return &c
	case *Kern:
		c := *t
		c.next = nil
		return &c
	case *Penalty:
		c := *t
		c.next = nil
		return &c
	}
	return nil
}
