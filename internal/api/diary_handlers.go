package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/daybookapp/daybook-server/internal/domain"
	apperrors "github.com/daybookapp/daybook-server/internal/errors"
	"github.com/daybookapp/daybook-server/internal/render"
	"github.com/daybookapp/daybook-server/internal/service"
	"github.com/daybookapp/daybook-server/internal/store"
)

func (s *Server) registerDiaryRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "listDiaries",
		Method:      http.MethodGet,
		Path:        "/api/v1/diaries",
		Summary:     "List diary entries",
		Description: "Returns the authenticated user's diary entries, newest first",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleListDiaries)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchDiaries",
		Method:      http.MethodGet,
		Path:        "/api/v1/diaries/search",
		Summary:     "Search diary entries",
		Description: "Case-insensitive substring search over titles and contents; returns every match",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleSearchDiaries)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFavoriteDiaries",
		Method:      http.MethodGet,
		Path:        "/api/v1/diaries/favorites",
		Summary:     "List favorite entries",
		Description: "Returns all of the user's favorite diary entries, newest first",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleListFavoriteDiaries)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDiary",
		Method:      http.MethodGet,
		Path:        "/api/v1/diaries/{id}",
		Summary:     "Get diary entry",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleGetDiary)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createDiary",
		Method:        http.MethodPost,
		Path:          "/api/v1/diaries",
		Summary:       "Create diary entry",
		Description:   "Creates an entry from a multipart form with optional photo attachments",
		Tags:          []string{"Diaries"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateDiary)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateDiary",
		Method:      http.MethodPatch,
		Path:        "/api/v1/diaries/{id}",
		Summary:     "Update diary entry",
		Description: "Partially updates an entry's title, content, and favorite flag",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleUpdateDiary)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteDiary",
		Method:      http.MethodDelete,
		Path:        "/api/v1/diaries/{id}",
		Summary:     "Delete diary entry",
		Description: "Deletes an entry along with all of its photos",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleDeleteDiary)

	huma.Register(s.api, huma.Operation{
		OperationID: "favoriteDiary",
		Method:      http.MethodPost,
		Path:        "/api/v1/diaries/{id}/favorite",
		Summary:     "Mark entry as favorite",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleFavoriteDiary)

	huma.Register(s.api, huma.Operation{
		OperationID: "unfavoriteDiary",
		Method:      http.MethodDelete,
		Path:        "/api/v1/diaries/{id}/favorite",
		Summary:     "Remove entry from favorites",
		Tags:        []string{"Diaries"},
		Security:    bearer,
	}, s.handleUnfavoriteDiary)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addDiaryPhotos",
		Method:        http.MethodPost,
		Path:          "/api/v1/diaries/{id}/photos",
		Summary:       "Attach photos to entry",
		Description:   "Stores valid photos and reports skipped ones without failing the request",
		Tags:          []string{"Photos"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddDiaryPhotos)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteDiaryPhoto",
		Method:      http.MethodDelete,
		Path:        "/api/v1/diaries/photos/{photoId}",
		Summary:     "Delete photo",
		Tags:        []string{"Photos"},
		Security:    bearer,
	}, s.handleDeleteDiaryPhoto)
}

// === DTOs ===

// PageInput carries the list pagination and rendering query parameters.
type PageInput struct {
	Page        int    `query:"page" minimum:"1" doc:"Page number (1-based)"`
	PageSize    int    `query:"page_size" minimum:"1" maximum:"100" doc:"Entries per page (default 5)"`
	ContentMode string `query:"content_mode" enum:"html,plain,markdown" doc:"Content rendering mode"`
}

// ContentModeInput selects the content rendering mode for unpaged lists.
type ContentModeInput struct {
	ContentMode string `query:"content_mode" enum:"html,plain,markdown" doc:"Content rendering mode"`
}

// SearchInput adds the search keyword to the rendering mode.
type SearchInput struct {
	ContentModeInput
	Keyword string `query:"keyword" doc:"Search term matched against title and content"`
}

// GetDiaryInput identifies a single entry.
type GetDiaryInput struct {
	ID          string `path:"id" doc:"Entry ID"`
	ContentMode string `query:"content_mode" enum:"html,plain,markdown" doc:"Content rendering mode"`
}

// CreateDiaryInput accepts a multipart form with entry fields and photos.
type CreateDiaryInput struct {
	RawBody multipart.Form
}

// UpdateDiaryRequest contains partial entry updates.
type UpdateDiaryRequest struct {
	Title      *string `json:"title,omitempty" doc:"New title"`
	Content    *string `json:"content,omitempty" doc:"New content"`
	IsFavorite *bool   `json:"is_favorite,omitempty" doc:"New favorite flag"`
}

// UpdateDiaryInput wraps the update request for Huma.
type UpdateDiaryInput struct {
	ID   string `path:"id" doc:"Entry ID"`
	Body UpdateDiaryRequest
}

// DiaryIDInput identifies an entry for delete and favorite operations.
type DiaryIDInput struct {
	ID string `path:"id" doc:"Entry ID"`
}

// AddPhotosInput accepts a multipart form with photo files.
type AddPhotosInput struct {
	ID      string `path:"id" doc:"Entry ID"`
	RawBody multipart.Form
}

// DeletePhotoInput identifies a photo.
type DeletePhotoInput struct {
	PhotoID string `path:"photoId" doc:"Photo ID"`
}

// PhotoResponse describes one attached photo.
type PhotoResponse struct {
	ID        string    `json:"id" doc:"Photo ID"`
	URL       string    `json:"url" doc:"Path the photo is served from"`
	BlurHash  string    `json:"blur_hash,omitempty" doc:"BlurHash placeholder string"`
	CreatedAt time.Time `json:"created_at" doc:"Upload timestamp"`
}

// DiaryResponse describes one diary entry.
type DiaryResponse struct {
	ID         string          `json:"id" doc:"Entry ID"`
	Title      string          `json:"title" doc:"Entry title"`
	Content    string          `json:"content" doc:"Entry content in the requested mode"`
	IsFavorite bool            `json:"is_favorite" doc:"Favorite flag"`
	CreatedAt  time.Time       `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt  time.Time       `json:"updated_at" doc:"Last update timestamp"`
	Photos     []PhotoResponse `json:"photos" doc:"Attached photos"`
}

// DiaryOutput wraps a single entry response for Huma.
type DiaryOutput struct {
	Body DiaryResponse
}

// DiaryPageResponse is one page of diary entries with paging metadata.
type DiaryPageResponse struct {
	TotalCount  int             `json:"total_count" doc:"Total matching entries"`
	CurrentPage int             `json:"current_page" doc:"Page number of this result"`
	PageSize    int             `json:"page_size" doc:"Entries per page"`
	TotalPages  int             `json:"total_pages" doc:"Total number of pages"`
	HasMore     bool            `json:"has_more" doc:"Whether later pages exist"`
	Data        []DiaryResponse `json:"data" doc:"Entries on this page"`
}

// DiaryPageOutput wraps a page of entries for Huma.
type DiaryPageOutput struct {
	Body DiaryPageResponse
}

// DiaryListResponse is an unpaged list of entries with its total count.
// Search and favorites return every match rather than a page.
type DiaryListResponse struct {
	TotalCount int             `json:"total_count" doc:"Number of matching entries"`
	Data       []DiaryResponse `json:"data" doc:"All matching entries, newest first"`
}

// DiaryListOutput wraps an unpaged list of entries for Huma.
type DiaryListOutput struct {
	Body DiaryListResponse
}

// AddPhotosResponse reports stored and skipped uploads.
type AddPhotosResponse struct {
	Added   []PhotoResponse         `json:"added" doc:"Photos that were stored"`
	Skipped []service.SkippedUpload `json:"skipped" doc:"Uploads rejected with reasons"`
}

// AddPhotosOutput wraps the add-photos response for Huma.
type AddPhotosOutput struct {
	Body AddPhotosResponse
}

// === Handlers ===

func (s *Server) handleListDiaries(ctx context.Context, input *PageInput) (*DiaryPageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Diary.List(ctx, userID, pageParams(input))
	if err != nil {
		return nil, err
	}

	return &DiaryPageOutput{Body: s.mapDiaryPage(result, render.ParseMode(input.ContentMode))}, nil
}

func (s *Server) handleSearchDiaries(ctx context.Context, input *SearchInput) (*DiaryListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Diary.Search(ctx, userID, input.Keyword)
	if err != nil {
		return nil, err
	}

	return &DiaryListOutput{Body: s.mapDiaryList(entries, render.ParseMode(input.ContentMode))}, nil
}

func (s *Server) handleListFavoriteDiaries(ctx context.Context, input *ContentModeInput) (*DiaryListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Diary.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &DiaryListOutput{Body: s.mapDiaryList(entries, render.ParseMode(input.ContentMode))}, nil
}

func (s *Server) handleGetDiary(ctx context.Context, input *GetDiaryInput) (*DiaryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.services.Diary.GetByID(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &DiaryOutput{Body: s.mapDiary(entry, render.ParseMode(input.ContentMode))}, nil
}

func (s *Server) handleCreateDiary(ctx context.Context, input *CreateDiaryInput) (*DiaryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	photos, err := collectUploads(&input.RawBody)
	if err != nil {
		return nil, err
	}

	req := service.CreateEntryRequest{
		Title:      formValue(&input.RawBody, "title"),
		Content:    formValue(&input.RawBody, "content"),
		IsFavorite: formBool(&input.RawBody, "is_favorite"),
		Photos:     photos,
	}

	entry, err := s.services.Diary.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	return &DiaryOutput{Body: s.mapDiary(entry, render.ModeHTML)}, nil
}

func (s *Server) handleUpdateDiary(ctx context.Context, input *UpdateDiaryInput) (*DiaryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.services.Diary.Update(ctx, userID, input.ID, service.UpdateEntryRequest{
		Title:      input.Body.Title,
		Content:    input.Body.Content,
		IsFavorite: input.Body.IsFavorite,
	})
	if err != nil {
		return nil, err
	}

	return &DiaryOutput{Body: s.mapDiary(entry, render.ModeHTML)}, nil
}

func (s *Server) handleDeleteDiary(ctx context.Context, input *DiaryIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Diary.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Entry deleted"}}, nil
}

func (s *Server) handleFavoriteDiary(ctx context.Context, input *DiaryIDInput) (*MessageOutput, error) {
	return s.setFavorite(ctx, input.ID, true)
}

func (s *Server) handleUnfavoriteDiary(ctx context.Context, input *DiaryIDInput) (*MessageOutput, error) {
	return s.setFavorite(ctx, input.ID, false)
}

func (s *Server) setFavorite(ctx context.Context, entryID string, favorite bool) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Diary.SetFavorite(ctx, userID, entryID, favorite); err != nil {
		return nil, err
	}

	msg := "Entry removed from favorites"
	if favorite {
		msg = "Entry marked as favorite"
	}
	return &MessageOutput{Body: MessageResponse{Message: msg}}, nil
}

func (s *Server) handleAddDiaryPhotos(ctx context.Context, input *AddPhotosInput) (*AddPhotosOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	uploads, err := collectUploads(&input.RawBody)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Diary.AddPhotos(ctx, userID, input.ID, uploads)
	if err != nil {
		return nil, err
	}

	resp := AddPhotosResponse{
		Added:   make([]PhotoResponse, 0, len(result.Added)),
		Skipped: result.Skipped,
	}
	for i := range result.Added {
		resp.Added = append(resp.Added, s.mapPhoto(&result.Added[i]))
	}

	return &AddPhotosOutput{Body: resp}, nil
}

func (s *Server) handleDeleteDiaryPhoto(ctx context.Context, input *DeletePhotoInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Diary.DeletePhoto(ctx, userID, input.PhotoID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Photo deleted"}}, nil
}

// === Helpers ===

func pageParams(input *PageInput) store.PageParams {
	params := store.DefaultPageParams()
	if input.Page > 0 {
		params.Page = input.Page
	}
	if input.PageSize > 0 {
		params.PageSize = input.PageSize
	}
	params.Validate()
	return params
}

func (s *Server) mapPhoto(photo *domain.Photo) PhotoResponse {
	return PhotoResponse{
		ID:        photo.ID,
		URL:       render.RewriteURL(s.publicURL, photo.URLPath()),
		BlurHash:  photo.BlurHash,
		CreatedAt: photo.CreatedAt,
	}
}

func (s *Server) mapDiary(entry *domain.Entry, mode render.Mode) DiaryResponse {
	photos := make([]PhotoResponse, 0, len(entry.Photos))
	for i := range entry.Photos {
		photos = append(photos, s.mapPhoto(&entry.Photos[i]))
	}

	return DiaryResponse{
		ID:         entry.ID,
		Title:      entry.Title,
		Content:    render.Content(entry.Content, mode),
		IsFavorite: entry.IsFavorite,
		CreatedAt:  entry.CreatedAt,
		UpdatedAt:  entry.UpdatedAt,
		Photos:     photos,
	}
}

func (s *Server) mapDiaryList(entries []*domain.Entry, mode render.Mode) DiaryListResponse {
	data := make([]DiaryResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, s.mapDiary(entry, mode))
	}
	return DiaryListResponse{TotalCount: len(data), Data: data}
}

func (s *Server) mapDiaryPage(result *store.PagedResult[*domain.Entry], mode render.Mode) DiaryPageResponse {
	data := make([]DiaryResponse, 0, len(result.Items))
	for _, entry := range result.Items {
		data = append(data, s.mapDiary(entry, mode))
	}

	return DiaryPageResponse{
		TotalCount:  result.Total,
		CurrentPage: result.Page,
		PageSize:    result.PageSize,
		TotalPages:  result.TotalPages,
		HasMore:     result.HasMore(),
		Data:        data,
	}
}

func formValue(form *multipart.Form, key string) string {
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func formBool(form *multipart.Form, key string) bool {
	v, err := strconv.ParseBool(formValue(form, key))
	return err == nil && v
}

// collectUploads reads every file under the "photos" form field into memory.
// Size and type validation happens in the service layer.
func collectUploads(form *multipart.Form) ([]service.PhotoUpload, error) {
	headers := form.File["photos"]
	uploads := make([]service.PhotoUpload, 0, len(headers))

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, apperrors.Validationf("could not read uploaded file %s", header.Filename)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, apperrors.Validationf("could not read uploaded file %s", header.Filename)
		}

		uploads = append(uploads, service.PhotoUpload{
			FileName:  header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Data:      data,
		})
	}

	return uploads, nil
}
