package adzuna

import (
	"encoding/json"
	"net/http"
)

// Config defines Adzuna API client settings
type Config struct {
	AppID      string
	AppKey     string
	Country    string
	BaseURL    string
	HTTPClient *http.Client
	PageSize   int
}

// Client queries Adzuna job search API
type Client struct {
	appID      string
	appKey     string
	country    string
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// SearchParams describe one page of a job search
type SearchParams struct {
	Where      string
	Page       int // 1-based
	MaxDaysOld int
	SortBy     string // "date" or "relevance"
}

// Page is one page of search results. Malformed counts results that could
// not be decoded and were left out of Jobs.
type Page struct {
	Count     int
	Jobs      []Job
	Malformed int
}

type jobSearchResponse struct {
	Count   int               `json:"count"`
	Results []json.RawMessage `json:"results"`
}

type jobPosting struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Company     companySummary  `json:"company"`
	Location    locationSummary `json:"location"`
	Description string          `json:"description"`
	Created     string          `json:"created"`
	RedirectURL string          `json:"redirect_url"`
	Category    struct {
		Label string `json:"label"`
	} `json:"category"`
}

type companySummary struct {
	DisplayName string `json:"display_name"`
}

type locationSummary struct {
	DisplayName string `json:"display_name"`
}

// Job is an Adzuna search result. Created is kept as reported.
type Job struct {
	ID          string
	Title       string
	CompanyName string
	Location    string
	Category    string
	URL         string
	Description string
	Created     string
}
