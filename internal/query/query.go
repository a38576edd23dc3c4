// Package query composes the ranking query from a persona and a job-to-be-done.
package query

// Query is the single query of a run.
type Query struct {
	Persona string
	Job     string
	Text    string
}

// New composes "persona: job".
func New(persona, job string) Query {
	return Query{
		Persona: persona,
		Job:     job,
		Text:    persona + ": " + job,
	}
}

func (q Query) String() string { return q.Text }
