package domain

// Page is a 1-indexed page of results.
type Page struct {
	Number int
	Size   int
}

func NewPage(pageNumber, pageSize int) Page {
	pNumber := 1
	if pageNumber > 0 {
		pNumber = pageNumber
	}

	pSize := 10
	if pageSize > 0 {
		pSize = pageSize
	}
	if pSize > maxPageSize {
		pSize = maxPageSize
	}

	return Page{
		Number: pNumber,
		Size:   pSize,
	}
}

// Offset returns the number of results preceding the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

const maxPageSize = 100
