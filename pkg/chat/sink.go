package chat

// Sink receives the output of one SendMessage call. Chunk is called once per
// fragment in arrival order, then exactly one of Done or Fail.
type Sink interface {
	Chunk(text string)
	Done(text string)
	Fail(err error)
}

// SinkFuncs adapts plain functions to a Sink. Nil fields are skipped.
type SinkFuncs struct {
	OnChunk func(string)
	OnDone  func(string)
	OnFail  func(error)
}

func (s SinkFuncs) Chunk(text string) {
	if s.OnChunk != nil {
		s.OnChunk(text)
	}
}

func (s SinkFuncs) Done(text string) {
	if s.OnDone != nil {
		s.OnDone(text)
	}
}

func (s SinkFuncs) Fail(err error) {
	if s.OnFail != nil {
		s.OnFail(err)
	}
}

// Discard drops everything.
var Discard Sink = SinkFuncs{}
