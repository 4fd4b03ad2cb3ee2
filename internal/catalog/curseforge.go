package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

const (
	CurseForgeAPIURL = "https://api.curseforge.com"

	MinecraftGameID = 432
	ModClassID      = 6
	ModPackClassID  = 4471
)

// RequestsPerSecond bounds calls to the catalog API.
const RequestsPerSecond = 10

// loaderType maps a mod loader to its CurseForge modLoaderType.
func loaderType(l models.ModLoader) string {
	switch l {
	case models.LoaderForge:
		return "1"
	case models.LoaderFabric:
		return "4"
	case models.LoaderQuilt:
		return "5"
	default:
		return ""
	}
}

type cfMod struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Summary string `json:"summary"`
	ClassID int    `json:"classId"`
	Logo    *struct {
		URL string `json:"url"`
	} `json:"logo"`
	LatestFiles []models.ModFile `json:"latestFiles"`
}

func (m cfMod) toMod() *models.Mod {
	mod := &models.Mod{
		ID:      m.ID,
		Name:    m.Name,
		Slug:    m.Slug,
		Summary: m.Summary,
		APIType: models.APICurseForge,
	}
	if m.Logo != nil {
		mod.IconURL = m.Logo.URL
	}
	for _, f := range m.LatestFiles {
		mod.LatestFileIDs = append(mod.LatestFileIDs, f.ID)
	}
	return mod
}

// CurseForge is the CurseForge catalog client.
type CurseForge struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewCurseForge creates a client authenticated with cfg.APIKey.
func NewCurseForge(cfg shared.CurseForgeConfig, logger *log.Logger) *CurseForge {
	if logger == nil {
		logger = log.Default()
	}
	base := cfg.BaseURL
	if base == "" {
		base = CurseForgeAPIURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(base, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("x-api-key", cfg.APIKey)
	}

	return &CurseForge{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(RequestsPerSecond), RequestsPerSecond),
		logger:  shared.WithLogger(logger, "component", "curseforge"),
	}
}

// WithClient replaces the HTTP client.
func (c *CurseForge) WithClient(client *resty.Client) *CurseForge {
	c.client = client
	return c
}

// get requests path and decodes the "data" member of the response into out.
func (c *CurseForge) get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	c.logger.Debug("Catalog request", "path", path, "params", params)
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrModNotFound, path)
	case resp.StatusCode() == http.StatusForbidden || resp.StatusCode() == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s returned %d, check catalog.curseforge.api_key", shared.ErrAPIRequest, path, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, path, resp.StatusCode())
	}

	data := gjson.GetBytes(resp.Body(), "data")
	if !data.Exists() {
		return fmt.Errorf("%w: %s response has no data", shared.ErrAPIRequest, path)
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", shared.ErrAPIRequest, path, err)
	}
	return nil
}

func (c *CurseForge) SearchVersions(ctx context.Context, gameVersion string, loader models.ModLoader) ([]models.CatalogVersion, error) {
	if gameVersion == "" {
		var games []struct {
			VersionString string `json:"versionString"`
		}
		if err := c.get(ctx, "/v1/minecraft/version", nil, &games); err != nil {
			return nil, err
		}
		versions := make([]models.CatalogVersion, 0, len(games))
		for _, g := range games {
			versions = append(versions, models.CatalogVersion{ID: g.VersionString, GameVersion: g.VersionString})
		}
		SortVersions(versions)
		return versions, nil
	}

	var loaders []struct {
		Name        string `json:"name"`
		GameVersion string `json:"gameVersion"`
		Latest      bool   `json:"latest"`
		Recommended bool   `json:"recommended"`
	}
	if err := c.get(ctx, "/v1/minecraft/modloader", map[string]string{"version": gameVersion}, &loaders); err != nil {
		return nil, err
	}

	var versions []models.CatalogVersion
	for _, l := range loaders {
		if kind, _ := models.ParseModLoader(l.Name); loader != models.LoaderNone && kind != loader {
			continue
		}
		versions = append(versions, models.CatalogVersion{
			ID:          l.Name,
			GameVersion: l.GameVersion,
			Latest:      l.Latest,
			Recommended: l.Recommended,
		})
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no %s versions for %s", shared.ErrNoCatalogMatch, loader, gameVersion)
	}
	SortVersions(versions)
	return versions, nil
}

func (c *CurseForge) GetItemByID(ctx context.Context, id int) (*models.Mod, error) {
	var m cfMod
	if err := c.get(ctx, "/v1/mods/"+strconv.Itoa(id), nil, &m); err != nil {
		return nil, err
	}
	return m.toMod(), nil
}

func (c *CurseForge) GetFileByID(ctx context.Context, modID, fileID int) (*models.ModFile, error) {
	var f models.ModFile
	path := fmt.Sprintf("/v1/mods/%d/files/%d", modID, fileID)
	if err := c.get(ctx, path, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *CurseForge) GetFiles(ctx context.Context, modID int, gameVersion string, loader models.ModLoader) ([]models.ModFile, error) {
	params := map[string]string{}
	if gameVersion != "" {
		params["gameVersion"] = gameVersion
	}
	if t := loaderType(loader); t != "" {
		params["modLoaderType"] = t
	}

	var files []models.ModFile
	if err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/files", modID), params, &files); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: mod %d has no files for %s %s", shared.ErrNoCatalogMatch, modID, gameVersion, loader)
	}
	return files, nil
}

// SearchQuery filters a catalog search.
type SearchQuery struct {
	Filter      string
	GameVersion string
	Loader      models.ModLoader
	ModPacks    bool
	PageSize    int
}

// Search finds mods, or modpacks when q.ModPacks is set, ordered by popularity.
func (c *CurseForge) Search(ctx context.Context, q SearchQuery) ([]models.Mod, error) {
	class := ModClassID
	if q.ModPacks {
		class = ModPackClassID
	}
	params := map[string]string{
		"gameId":       strconv.Itoa(MinecraftGameID),
		"classId":      strconv.Itoa(class),
		"searchFilter": q.Filter,
		"sortField":    "2",
		"sortOrder":    "desc",
	}
	if q.GameVersion != "" {
		params["gameVersion"] = q.GameVersion
	}
	if t := loaderType(q.Loader); t != "" {
		params["modLoaderType"] = t
	}
	if q.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(q.PageSize)
	}

	var found []cfMod
	if err := c.get(ctx, "/v1/mods/search", params, &found); err != nil {
		return nil, err
	}
	mods := make([]models.Mod, 0, len(found))
	for _, m := range found {
		mods = append(mods, *m.toMod())
	}
	return mods, nil
}
