package request

// PageQuery is the keyset paging query shared by the list endpoints.
type PageQuery struct {
	After string `form:"after"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
