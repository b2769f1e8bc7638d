// Package bt 最小的行为树：节点在调用方提供的黑板上求值
package bt

type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	}
	return "unknown"
}

type Node[B any] interface {
	Tick(bb B) Status
}

// Selector 遇到非 Failure 停止，全 Failure 才 Failure
type Selector[B any] struct {
	Children []Node[B]
}

func (s *Selector[B]) Tick(bb B) Status {
	for _, child := range s.Children {
		if status := child.Tick(bb); status != StatusFailure {
			return status
		}
	}
	return StatusFailure
}

// Sequence 遇到非 Success 停止，全 Success 才 Success
type Sequence[B any] struct {
	Children []Node[B]
}

func (s *Sequence[B]) Tick(bb B) Status {
	for _, child := range s.Children {
		if status := child.Tick(bb); status != StatusSuccess {
			return status
		}
	}
	return StatusSuccess
}

type Condition[B any] struct {
	Check func(bb B) bool
}

func (c *Condition[B]) Tick(bb B) Status {
	if c.Check == nil || !c.Check(bb) {
		return StatusFailure
	}
	return StatusSuccess
}

type Action[B any] struct {
	Do func(bb B) Status
}

func (a *Action[B]) Tick(bb B) Status {
	if a.Do == nil {
		return StatusFailure
	}
	return a.Do(bb)
}

// Sel 与 Seq 是构造树时的简写
func Sel[B any](children ...Node[B]) *Selector[B] { return &Selector[B]{Children: children} }
func Seq[B any](children ...Node[B]) *Sequence[B] { return &Sequence[B]{Children: children} }
func If[B any](check func(B) bool) *Condition[B] { return &Condition[B]{Check: check} }
func Do[B any](do func(B) Status) *Action[B] { return &Action[B]{Do: do} }
