package leadlist

import "github.com/wolfman30/muvance-crm/internal/leads"

// PageCount is max(1, ceil(total/PageSize)).
func PageCount(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

// ClampPage keeps page within [1, PageCount(total)].
func ClampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if last := PageCount(total); page > last {
		return last
	}
	return page
}

// Page returns the slice of list shown on page. page is clamped first.
func Page(list []leads.Lead, page int) []leads.Lead {
	page = ClampPage(page, len(list))
	start := (page - 1) * PageSize
	if start >= len(list) {
		return nil
	}
	end := start + PageSize
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

// View is one rendered page of the pipeline.
type View struct {
	Leads []leads.Lead
	Total int
	Page  int
	Pages int
}

// Build runs the pipeline and pages the result, clamping the requested page.
func Build(all []leads.Lead, q Query, page int) View {
	filtered := Apply(all, q)
	page = ClampPage(page, len(filtered))
	return View{
		Leads: Page(filtered, page),
		Total: len(filtered),
		Page:  page,
		Pages: PageCount(len(filtered)),
	}
}
