package model

type Release struct {
	Tag    string
	Title  string
	Body   string
	Commit string
	Assets []string
}

type ReleaseTemplate struct {
	Tag   string
	Title string
	Body  string
}

type PublishPolicy string

const (
	PublishAlways       PublishPolicy = "always"
	PublishAllSucceeded PublishPolicy = "all-succeeded"
)
