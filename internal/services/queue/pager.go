package queue

// Page is one screen of the queue. Number is 1-based.
type Page struct {
	Number  int     `json:"page"`
	Pages   int     `json:"pages"`
	Total   int     `json:"total_orders"`
	Entries []Entry `json:"orders"`
	HasPrev bool    `json:"has_prev"`
	HasNext bool    `json:"has_next"`
}

// Pager paginates a fixed, already sorted list.
type Pager struct {
	entries []Entry
	size    int
	current int
}

func NewPager(entries []Entry, size int) *Pager {
	if size < 1 {
		size = DefaultPageSize
	}
	return &Pager{entries: entries, size: size, current: 1}
}

// Pages is at least 1, even for an empty queue.
func (p *Pager) Pages() int {
	if len(p.entries) == 0 {
		return 1
	}
	return (len(p.entries) + p.size - 1) / p.size
}

func (p *Pager) Number() int {
	return p.current
}

// Next advances one page. It is a no-op on the last page.
func (p *Pager) Next() bool {
	if p.current >= p.Pages() {
		return false
	}
	p.current++
	return true
}

// Prev goes back one page. It is a no-op on the first page.
func (p *Pager) Prev() bool {
	if p.current <= 1 {
		return false
	}
	p.current--
	return true
}

// Go jumps to page n, clamped to [1, Pages()].
func (p *Pager) Go(n int) {
	switch {
	case n < 1:
		p.current = 1
	case n > p.Pages():
		p.current = p.Pages()
	default:
		p.current = n
	}
}

func (p *Pager) Current() Page {
	start := (p.current - 1) * p.size
	end := start + p.size
	if end > len(p.entries) {
		end = len(p.entries)
	}
	if start > end {
		start = end
	}
	return Page{
		Number:  p.current,
		Pages:   p.Pages(),
		Total:   len(p.entries),
		Entries: p.entries[start:end],
		HasPrev: p.current > 1,
		HasNext: p.current < p.Pages(),
	}
}
