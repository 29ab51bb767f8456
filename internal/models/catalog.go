package models

import "time"

// CurseForge REST response models.

type CFHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"`
}

type CFFile struct {
	ID           int64     `json:"id"`
	ModID        int64     `json:"modId"`
	DisplayName  string    `json:"displayName"`
	FileName     string    `json:"fileName"`
	FileDate     time.Time `json:"fileDate"`
	FileLength   int64     `json:"fileLength"`
	DownloadURL  string    `json:"downloadUrl"`
	Hashes       []CFHash  `json:"hashes"`
	GameVersions []string  `json:"gameVersions"`
}

type CFLinks struct {
	WebsiteURL string `json:"websiteUrl"`
}

type CFMod struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Summary       string   `json:"summary"`
	DownloadCount float64  `json:"downloadCount"`
	Links         CFLinks  `json:"links"`
	LatestFiles   []CFFile `json:"latestFiles"`
}

type CFPagination struct {
	Index       int `json:"index"`
	PageSize    int `json:"pageSize"`
	ResultCount int `json:"resultCount"`
	TotalCount  int `json:"totalCount"`
}

type CFSearchResponse struct {
	Data       []CFMod      `json:"data"`
	Pagination CFPagination `json:"pagination"`
}

type CFModResponse struct {
	Data CFMod `json:"data"`
}

type CFFilesResponse struct {
	Data       []CFFile     `json:"data"`
	Pagination CFPagination `json:"pagination"`
}

type CFStringResponse struct {
	Data string `json:"data"`
}

// ResolvedMod is a catalog entry resolved to a concrete downloadable file.
type ResolvedMod struct {
	Filename     string `json:"filename"`
	URL          string `json:"url"`
	Hash         string `json:"hash"`
	Size         int64  `json:"size"`
	Version      string `json:"version"`
	Description  string `json:"description"`
	CurseForgeID int64  `json:"curseForgeId"`
	FileID       int64  `json:"fileId"`
}

// Descriptor converts a resolved entry into a manifest entry.
func (r ResolvedMod) Descriptor() ModDescriptor {
	return ModDescriptor{
		Filename:     r.Filename,
		URL:          r.URL,
		Hash:         r.Hash,
		Size:         r.Size,
		Required:     true,
		Version:      r.Version,
		Description:  r.Description,
		CurseForgeID: r.CurseForgeID,
		FileID:       r.FileID,
	}
}
