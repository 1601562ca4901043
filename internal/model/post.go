package model

import "time"

type Image struct {
	Filename string `json:"filename" binding:"required"`
	ImageURL string `json:"imageUrl" binding:"required"`
}

type PostAuthor struct {
	ID       string `json:"_id"`
	Nickname string `json:"nickname"`
}

type Post struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Images    []Image    `json:"images"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
	User      PostAuthor `json:"user"`
}

// PostPatch holds the fields of a partial update; nil means "leave as is".
type PostPatch struct {
	Title     *string
	Body      *string
	Images    *[]Image
	UpdatedAt time.Time
}

type CreatePostRequest struct {
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	Images []Image `json:"images" binding:"omitempty,dive"`
}

type UpdatePostRequest struct {
	Title  *string  `json:"title"`
	Body   *string  `json:"body"`
	Images *[]Image `json:"images" binding:"omitempty,dive"`
}

type PostListResponse struct {
	Data       []Post `json:"data"`
	TotalCount int64  `json:"totalCount"`
}

type UploadedFile struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}
