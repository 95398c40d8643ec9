package handler

import (
	"reflect"
	"strings"
)

// Request-context types, one per operation. Path parameters never come from
// the body, hence json:"-".

type listReviewsRequest struct {
	MovieID      string `param:"movieId" json:"-" validate:"required"`
	ReviewID     string `query:"reviewId" json:"-"`
	ReviewerID   string `query:"reviewerId" json:"-"`
	ReviewerName string `query:"reviewerName" json:"-"`
}

// reviewer prefers reviewerId and falls back to the legacy reviewerName.
func (r listReviewsRequest) reviewer() string {
	if strings.TrimSpace(r.ReviewerID) != "" {
		return r.ReviewerID
	}
	return r.ReviewerName
}

type createReviewRequest struct {
	MovieID string `json:"movieId" validate:"required"`
	Content string `json:"content"`
}

type updateReviewRequest struct {
	MovieID  string `param:"movieId" json:"-" validate:"required"`
	ReviewID string `param:"reviewId" json:"-" validate:"required"`
	Content  string `json:"content"`
}

type translateRequest struct {
	ReviewID string `param:"reviewId" json:"-" validate:"required"`
	MovieID  string `param:"movieId" json:"-" validate:"required"`
	Language string `query:"language" json:"-" validate:"required"`
}

// fieldName reports the name a client used for a field.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"param", "query", "json"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
