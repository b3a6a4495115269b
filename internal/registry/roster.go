package registry

// Roster is the ordered set of participant emails for one activity.
// Insertion order is signup order and an email appears at most once.
type Roster struct {
	emails []string
	index  map[string]int
}

// NewRoster builds a roster from emails in order. It returns false when
// emails contains a duplicate.
func NewRoster(emails ...string) (*Roster, bool) {
	r := &Roster{index: make(map[string]int, len(emails))}
	for _, email := range emails {
		if !r.Add(email) {
			return nil, false
		}
	}
	return r, true
}

// Add appends email and reports whether it was not already present.
func (r *Roster) Add(email string) bool {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if _, ok := r.index[email]; ok {
		return false
	}
	r.index[email] = len(r.emails)
	r.emails = append(r.emails, email)
	return true
}

// Remove deletes email, keeping the remaining order, and reports whether
// it was present.
func (r *Roster) Remove(email string) bool {
	pos, ok := r.index[email]
	if !ok {
		return false
	}
	r.emails = append(r.emails[:pos], r.emails[pos+1:]...)
	delete(r.index, email)
	for i := pos; i < len(r.emails); i++ {
		r.index[r.emails[i]] = i
	}
	return true
}

func (r *Roster) Contains(email string) bool {
	_, ok := r.index[email]
	return ok
}

func (r *Roster) Len() int {
	return len(r.emails)
}

// Emails returns a copy of the roster in signup order. The result is never nil.
func (r *Roster) Emails() []string {
	out := make([]string, len(r.emails))
	copy(out, r.emails)
	return out
}
