package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/Gojibodev/keklauncher/internal/config"
	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
)

const (
	DefaultBaseURL = "https://api.curseforge.com"
	MinecraftID    = 432
	hashAlgoMD5    = 1
)

// CurseForge is a client for the CurseForge v1 REST API.
type CurseForge struct {
	BaseURL    string
	APIKey     string
	GameID     int
	PageSize   int
	HttpClient *http.Client
}

func NewCurseForge(baseURL, apiKey string, gameID int) *CurseForge {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if gameID == 0 {
		gameID = MinecraftID
	}
	return &CurseForge{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		GameID:     gameID,
		PageSize:   20,
		HttpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func FromConfig(cfg config.KekConfig) *CurseForge {
	return NewCurseForge(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.GameID)
}

func (c *CurseForge) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return apperrors.Kind(apperrors.ErrCatalogUnavailable, apperrors.CategoryNetworkTransient, "%v", err)
	}
	defer resp.Body.Close()
	logging.GlobalLogger.Debug("Catalog " + endpoint + " responded with status: " + resp.Status)

	if resp.StatusCode != http.StatusOK {
		category := apperrors.CategoryNetworkPermanent
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			category = apperrors.CategoryNetworkTransient
		}
		return apperrors.Kind(apperrors.ErrCatalogUnavailable, category, "HTTP %d for %s", resp.StatusCode, endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

// Search finds mods by name, optionally filtered by game version.
func (c *CurseForge) Search(ctx context.Context, query, gameVersion string) ([]models.CFMod, error) {
	params := url.Values{}
	params.Set("gameId", strconv.Itoa(c.GameID))
	params.Set("searchFilter", query)
	params.Set("pageSize", strconv.Itoa(c.PageSize))
	if gameVersion != "" {
		params.Set("gameVersion", gameVersion)
	}
	var out models.CFSearchResponse
	if err := c.getJSON(ctx, "/v1/mods/search?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	logging.GlobalLogger.Info(fmt.Sprintf("Catalog search %q returned %d mods", query, len(out.Data)))
	return out.Data, nil
}

// Featured lists popular mods for a game version.
func (c *CurseForge) Featured(ctx context.Context, gameVersion string) ([]models.CFMod, error) {
	return c.Search(ctx, "", gameVersion)
}

func (c *CurseForge) GetMod(ctx context.Context, modID int64) (models.CFMod, error) {
	var out models.CFModResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/mods/%d", modID), &out); err != nil {
		return models.CFMod{}, err
	}
	return out.Data, nil
}

func (c *CurseForge) GetModFiles(ctx context.Context, modID int64, gameVersion string) ([]models.CFFile, error) {
	endpoint := fmt.Sprintf("/v1/mods/%d/files", modID)
	if gameVersion != "" {
		endpoint += "?gameVersion=" + url.QueryEscape(gameVersion)
	}
	var out models.CFFilesResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *CurseForge) GetDownloadURL(ctx context.Context, modID, fileID int64) (string, error) {
	var out models.CFStringResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/mods/%d/files/%d/download-url", modID, fileID), &out); err != nil {
		return "", err
	}
	return out.Data, nil
}

// LatestFile returns the newest file by fileDate.
func (c *CurseForge) LatestFile(ctx context.Context, modID int64, gameVersion string) (models.CFFile, error) {
	files, err := c.GetModFiles(ctx, modID, gameVersion)
	if err != nil {
		return models.CFFile{}, err
	}
	if len(files) == 0 {
		return models.CFFile{}, fmt.Errorf("no files found for mod %d version %q", modID, gameVersion)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].FileDate.After(files[j].FileDate) })
	return files[0], nil
}

func (c *CurseForge) ResolveDownload(ctx context.Context, modID int64, gameVersion string) (models.ResolvedMod, error) {
	mod, err := c.GetMod(ctx, modID)
	if err != nil {
		return models.ResolvedMod{}, err
	}
	file, err := c.LatestFile(ctx, modID, gameVersion)
	if err != nil {
		return models.ResolvedMod{}, err
	}
	downloadURL, err := c.GetDownloadURL(ctx, modID, file.ID)
	if err != nil || downloadURL == "" {
		if file.DownloadURL == "" {
			if err == nil {
				err = fmt.Errorf("mod %d file %d has no download url", modID, file.ID)
			}
			return models.ResolvedMod{}, err
		}
		downloadURL = file.DownloadURL
	}

	return models.ResolvedMod{
		Filename:     file.FileName,
		URL:          downloadURL,
		Hash:         MD5Of(file),
		Size:         file.FileLength,
		Version:      file.DisplayName,
		Description:  mod.Summary,
		CurseForgeID: modID,
		FileID:       file.ID,
	}, nil
}

// MD5Of returns the file's MD5 hash entry, or "".
func MD5Of(file models.CFFile) string {
	for _, h := range file.Hashes {
		if h.Algo == hashAlgoMD5 {
			return h.Value
		}
	}
	return ""
}
