package model

// State is the request lifecycle snapshot held by a store slice.
// Pointer fields are nil until the first terminal action sets them.
type State struct {
	IsFetching  bool   `json:"isFetching" yaml:"isFetching"`
	DidError    *bool  `json:"didError" yaml:"didError"`
	Status      *int   `json:"status" yaml:"status"`
	LastUpdated *int64 `json:"lastUpdated" yaml:"lastUpdated"` // Unix epoch milliseconds
	Data        any    `json:"data" yaml:"data"`
	Error       error  `json:"-" yaml:"-"`
}

// InitialState returns a fresh state record with every field at its zero value.
func InitialState() *State {
	return &State{}
}

// ErrorMessage returns the last error text, or "" when no error is held.
func (s *State) ErrorMessage() string {
	if s == nil || s.Error == nil {
		return ""
	}
	return s.Error.Error()
}

// View is the printable form of State used by the CLI and HTTP surfaces.
type View struct {
	IsFetching  bool    `json:"isFetching" yaml:"isFetching"`
	DidError    *bool   `json:"didError" yaml:"didError"`
	Status      *int    `json:"status" yaml:"status"`
	LastUpdated *int64  `json:"lastUpdated" yaml:"lastUpdated"`
	Data        any     `json:"data" yaml:"data"`
	Error       *string `json:"error" yaml:"error"`
}

// ToView flattens the error into a string so the state can be marshalled.
func (s *State) ToView() View {
	if s == nil {
		s = InitialState()
	}
	v := View{
		IsFetching:  s.IsFetching,
		DidError:    s.DidError,
		Status:      s.Status,
		LastUpdated: s.LastUpdated,
		Data:        s.Data,
	}
	if s.Error != nil {
		msg := s.Error.Error()
		v.Error = &msg
	}
	return v
}

// RequestRecord describes one finished request as kept in the history store.
type RequestRecord struct {
	RequestID  string `json:"requestId" yaml:"requestId"`
	URL        string `json:"url" yaml:"url"`
	Operation  string `json:"operation" yaml:"operation"`
	Status     int    `json:"status" yaml:"status"`
	DidError   bool   `json:"didError" yaml:"didError"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  int64  `json:"startedAt" yaml:"startedAt"`   // epoch ms
	FinishedAt int64  `json:"finishedAt" yaml:"finishedAt"` // epoch ms
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
}

// RequestSummary aggregates the history store.
type RequestSummary struct {
	Total      int64   `json:"total" yaml:"total"`
	Errors     int64   `json:"errors" yaml:"errors"`
	AvgMs      float64 `json:"avgMs" yaml:"avgMs"`
	LastStatus int     `json:"lastStatus" yaml:"lastStatus"`
}
