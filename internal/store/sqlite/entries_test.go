package sqlite

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/daybookapp/daybook-server/internal/domain"
	"github.com/daybookapp/daybook-server/internal/store"
)

func newTestEntry(id, ownerID, title, content string) *domain.Entry {
	now := time.Now()
	return &domain.Entry{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// seedEntry inserts an entry without photos.
func seedEntry(t *testing.T, s *Store, id, ownerID, title, content string) *domain.Entry {
	t.Helper()
	entry := newTestEntry(id, ownerID, title, content)
	if err := s.CreateEntry(context.Background(), entry); err != nil {
		t.Fatalf("seed entry %s: %v", id, err)
	}
	return entry
}

func TestCreateEntry_WithPhotos_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")

	entry := newTestEntry("entry-1", "user-1", "First Day", "It rained all morning.")
	entry.IsFavorite = true
	entry.Photos = []domain.Photo{
		{ID: "photo-1", EntryID: "entry-1", FileName: "aaa.jpg", BlurHash: "LEHV6nWB2yk8", CreatedAt: time.Now()},
		{ID: "photo-2", EntryID: "entry-1", FileName: "bbb.png", CreatedAt: time.Now()},
	}

	if err := s.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	got, err := s.GetEntry(ctx, "user-1", "entry-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Title != "First Day" {
		t.Errorf("expected title First Day, got %s", got.Title)
	}
	if got.Content != "It rained all morning." {
		t.Errorf("content not round-tripped: %s", got.Content)
	}
	if !got.IsFavorite {
		t.Error("expected favorite flag set")
	}
	if len(got.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(got.Photos))
	}
	if got.Photos[0].FileName != "aaa.jpg" {
		t.Errorf("expected aaa.jpg first, got %s", got.Photos[0].FileName)
	}
	if got.Photos[0].BlurHash != "LEHV6nWB2yk8" {
		t.Errorf("blur hash not round-tripped: %s", got.Photos[0].BlurHash)
	}
}

func TestGetEntry_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")
	seedEntry(t, s, "entry-1", "user-1", "Private", "Mine alone.")

	// Another user cannot see it, even with the right ID.
	if _, err := s.GetEntry(ctx, "user-2", "entry-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound for other owner, got %v", err)
	}
}

func TestListEntries_PaginationAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")

	// Create 12 entries with strictly increasing timestamps.
	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 12; i++ {
		entry := newTestEntry(fmt.Sprintf("entry-%02d", i), "user-1", fmt.Sprintf("Day %d", i), "text")
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		entry.UpdatedAt = entry.CreatedAt
		if err := s.CreateEntry(ctx, entry); err != nil {
			t.Fatalf("create entry %d: %v", i, err)
		}
	}

	// Default page size is 5; newest first.
	page1, err := s.ListEntries(ctx, "user-1", store.PageParams{})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if page1.Total != 12 {
		t.Errorf("expected total 12, got %d", page1.Total)
	}
	if page1.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page1.TotalPages)
	}
	if len(page1.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(page1.Items))
	}
	if page1.Items[0].ID != "entry-12" {
		t.Errorf("expected newest entry first, got %s", page1.Items[0].ID)
	}
	if !page1.HasMore() {
		t.Error("expected more pages after page 1")
	}

	// Walk all pages and verify completeness without duplicates.
	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		result, err := s.ListEntries(ctx, "user-1", store.PageParams{Page: page, PageSize: 5})
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		for _, e := range result.Items {
			if seen[e.ID] {
				t.Errorf("entry %s returned twice", e.ID)
			}
			seen[e.ID] = true
		}
	}
	if len(seen) != 12 {
		t.Errorf("expected all 12 entries across pages, got %d", len(seen))
	}

	// Page beyond the end is empty, not an error.
	page9, err := s.ListEntries(ctx, "user-1", store.PageParams{Page: 9, PageSize: 5})
	if err != nil {
		t.Fatalf("list page 9: %v", err)
	}
	if len(page9.Items) != 0 {
		t.Errorf("expected empty page, got %d items", len(page9.Items))
	}
	if page9.Total != 12 {
		t.Errorf("expected total still 12, got %d", page9.Total)
	}
}

func TestListEntries_OwnerIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")
	seedEntry(t, s, "entry-1", "user-1", "Ana's day", "hers")
	seedEntry(t, s, "entry-2", "user-2", "Ben's day", "his")

	result, err := s.ListEntries(ctx, "user-1", store.PageParams{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Items))
	}
	if result.Items[0].ID != "entry-1" {
		t.Errorf("expected entry-1, got %s", result.Items[0].ID)
	}
}

func TestSearchEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")
	mine := []*domain.Entry{
		seedEntry(t, s, "entry-1", "user-1", "Trip to the Mountains", "We hiked all day."),
		seedEntry(t, s, "entry-2", "user-1", "Quiet Sunday", "Read a book about mountains."),
		seedEntry(t, s, "entry-3", "user-1", "Workday", "Nothing special."),
	}
	seedEntry(t, s, "entry-4", "user-2", "Mountain biking", "Not Ana's entry.")

	tests := []struct {
		name    string
		term    string
		wantIDs []string
	}{
		{"matches title and content", "mountain", []string{"entry-1", "entry-2"}},
		{"case insensitive", "MOUNTAIN", []string{"entry-1", "entry-2"}},
		{"content only", "hiked", []string{"entry-1"}},
		{"no matches", "ocean", nil},
		{"empty term returns everything", "", []string{"entry-3", "entry-2", "entry-1"}},
		{"whitespace only term returns everything", "   ", []string{"entry-3", "entry-2", "entry-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.SearchEntries(ctx, "user-1", tt.term)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("expected %d results, got %d", len(tt.wantIDs), len(results))
			}
			got := make(map[string]bool)
			for _, e := range results {
				got[e.ID] = true
				if e.OwnerID != "user-1" {
					t.Errorf("result %s leaked from owner %s", e.ID, e.OwnerID)
				}
			}
			for _, id := range tt.wantIDs {
				if !got[id] {
					t.Errorf("expected %s in results", id)
				}
			}

			// The LIKE query must agree with the in-memory predicate.
			for _, e := range mine {
				if want := e.Matches(strings.TrimSpace(tt.term)); want != got[e.ID] {
					t.Errorf("entry %s: Matches(%q)=%v but query returned %v", e.ID, tt.term, want, got[e.ID])
				}
			}
		})
	}
}

func TestSearchEntries_LikeWildcardsAreLiteral(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedEntry(t, s, "entry-1", "user-1", "Progress: 100%", "done")
	seedEntry(t, s, "entry-2", "user-1", "Other note", "abc")

	// "%" must match only the entry that literally contains it.
	results, err := s.SearchEntries(ctx, "user-1", "100%")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "entry-1" {
		t.Errorf("expected only entry-1, got %d items", len(results))
	}

	// "_" likewise.
	results, err = s.SearchEntries(ctx, "user-1", "a_c")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches for literal underscore, got %d", len(results))
	}
}

func TestListFavoriteEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedEntry(t, s, "entry-0", "user-1", "Plain", "a")

	// Seed more favorites than a default list page would hold; favorites
	// are not paginated, so all of them come back.
	for i := 1; i <= 7; i++ {
		fav := newTestEntry(fmt.Sprintf("entry-%d", i), "user-1", "Loved", "b")
		fav.IsFavorite = true
		if err := s.CreateEntry(ctx, fav); err != nil {
			t.Fatalf("create entry %d: %v", i, err)
		}
	}

	results, err := s.ListFavoriteEntries(ctx, "user-1")
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(results) != 7 {
		t.Fatalf("expected 7 favorites, got %d", len(results))
	}
	for _, e := range results {
		if !e.IsFavorite {
			t.Errorf("entry %s is not a favorite", e.ID)
		}
	}
}

func TestUpdateEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	entry := seedEntry(t, s, "entry-1", "user-1", "Before", "old text")
	created := entry.CreatedAt

	entry.Title = "After"
	entry.Content = "new text"
	entry.UpdatedAt = time.Now().Add(time.Minute)
	if err := s.UpdateEntry(ctx, entry); err != nil {
		t.Fatalf("update entry: %v", err)
	}

	got, err := s.GetEntry(ctx, "user-1", "entry-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Title != "After" || got.Content != "new text" {
		t.Errorf("update not applied: %s / %s", got.Title, got.Content)
	}
	// CreatedAt is immutable.
	if got.CreatedAt.Unix() != created.Unix() {
		t.Errorf("created_at moved: %v -> %v", created, got.CreatedAt)
	}
}

func TestUpdateEntry_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")
	entry := seedEntry(t, s, "entry-1", "user-1", "Private", "text")

	// Attacker supplies the right entry ID but the wrong owner.
	hijack := *entry
	hijack.OwnerID = "user-2"
	hijack.Title = "Hacked"
	if err := s.UpdateEntry(ctx, &hijack); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, _ := s.GetEntry(ctx, "user-1", "entry-1")
	if got.Title != "Private" {
		t.Errorf("entry modified across owners: %s", got.Title)
	}
}

func TestSetEntryFavorite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedEntry(t, s, "entry-1", "user-1", "Day", "text")

	if err := s.SetEntryFavorite(ctx, "user-1", "entry-1", true, time.Now()); err != nil {
		t.Fatalf("set favorite: %v", err)
	}
	got, _ := s.GetEntry(ctx, "user-1", "entry-1")
	if !got.IsFavorite {
		t.Error("expected favorite set")
	}

	if err := s.SetEntryFavorite(ctx, "user-1", "entry-1", false, time.Now()); err != nil {
		t.Fatalf("unset favorite: %v", err)
	}
	got, _ = s.GetEntry(ctx, "user-1", "entry-1")
	if got.IsFavorite {
		t.Error("expected favorite cleared")
	}

	// Wrong owner.
	if err := s.SetEntryFavorite(ctx, "user-ghost", "entry-1", true, time.Now()); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEntry_CascadesPhotos(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")

	entry := newTestEntry("entry-1", "user-1", "Day", "text")
	entry.Photos = []domain.Photo{
		{ID: "photo-1", EntryID: "entry-1", FileName: "aaa.jpg", CreatedAt: time.Now()},
	}
	if err := s.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := s.DeleteEntry(ctx, "user-1", "entry-1"); err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	if _, err := s.GetEntry(ctx, "user-1", "entry-1"); err != store.ErrNotFound {
		t.Errorf("expected entry gone, got %v", err)
	}
	if _, err := s.GetPhoto(ctx, "user-1", "photo-1"); err != store.ErrNotFound {
		t.Errorf("expected photo cascaded, got %v", err)
	}
}

func TestDeleteEntry_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")
	seedEntry(t, s, "entry-1", "user-1", "Private", "text")

	if err := s.DeleteEntry(ctx, "user-2", "entry-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetEntry(ctx, "user-1", "entry-1"); err != nil {
		t.Errorf("entry should survive cross-owner delete: %v", err)
	}
}

func TestAddPhotos(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedEntry(t, s, "entry-1", "user-1", "Day", "text")

	bumped := time.Now().Add(time.Minute)
	photos := []domain.Photo{
		{ID: "photo-1", EntryID: "entry-1", FileName: "aaa.jpg", CreatedAt: time.Now()},
		{ID: "photo-2", EntryID: "entry-1", FileName: "bbb.webp", BlurHash: "LKO2?U%2Tw=w", CreatedAt: time.Now()},
	}
	if err := s.AddPhotos(ctx, "user-1", "entry-1", photos, bumped); err != nil {
		t.Fatalf("add photos: %v", err)
	}

	got, err := s.GetEntry(ctx, "user-1", "entry-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if len(got.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(got.Photos))
	}
	if got.UpdatedAt.Unix() != bumped.Unix() {
		t.Errorf("expected updated_at bumped to %v, got %v", bumped, got.UpdatedAt)
	}
}

func TestAddPhotos_EntryNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")
	seedEntry(t, s, "entry-1", "user-1", "Day", "text")

	photos := []domain.Photo{{ID: "photo-1", EntryID: "entry-1", FileName: "aaa.jpg", CreatedAt: time.Now()}}

	// Missing entry.
	if err := s.AddPhotos(ctx, "user-1", "entry-ghost", photos, time.Now()); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Wrong owner.
	if err := s.AddPhotos(ctx, "user-2", "entry-1", photos, time.Now()); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound for cross-owner add, got %v", err)
	}

	// Nothing stuck around from the rolled-back attempts.
	got, _ := s.GetEntry(ctx, "user-1", "entry-1")
	if len(got.Photos) != 0 {
		t.Errorf("expected no photos, got %d", len(got.Photos))
	}
}

func TestGetPhoto_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")

	entry := newTestEntry("entry-1", "user-1", "Day", "text")
	entry.Photos = []domain.Photo{{ID: "photo-1", EntryID: "entry-1", FileName: "aaa.jpg", CreatedAt: time.Now()}}
	if err := s.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	got, err := s.GetPhoto(ctx, "user-1", "photo-1")
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	if got.FileName != "aaa.jpg" {
		t.Errorf("expected aaa.jpg, got %s", got.FileName)
	}

	if _, err := s.GetPhoto(ctx, "user-2", "photo-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound for other owner, got %v", err)
	}
}

func TestDeletePhoto(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")

	entry := newTestEntry("entry-1", "user-1", "Day", "text")
	entry.Photos = []domain.Photo{{ID: "photo-1", EntryID: "entry-1", FileName: "aaa.jpg", CreatedAt: time.Now()}}
	if err := s.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	// Wrong owner cannot delete.
	if err := s.DeletePhoto(ctx, "user-2", "photo-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound for other owner, got %v", err)
	}

	if err := s.DeletePhoto(ctx, "user-1", "photo-1"); err != nil {
		t.Fatalf("delete photo: %v", err)
	}

	// Second delete reports not found.
	if err := s.DeletePhoto(ctx, "user-1", "photo-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	got, _ := s.GetEntry(ctx, "user-1", "entry-1")
	if len(got.Photos) != 0 {
		t.Errorf("expected no photos, got %d", len(got.Photos))
	}
}

func TestListOwnerPhotoFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "user-1", "ana@example.com")
	seedUser(t, s, "user-2", "ben@example.com")

	e1 := newTestEntry("entry-1", "user-1", "Day 1", "text")
	e1.Photos = []domain.Photo{{ID: "photo-1", EntryID: "entry-1", FileName: "aaa.jpg", CreatedAt: time.Now()}}
	if err := s.CreateEntry(ctx, e1); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	e2 := newTestEntry("entry-2", "user-1", "Day 2", "text")
	e2.Photos = []domain.Photo{{ID: "photo-2", EntryID: "entry-2", FileName: "bbb.png", CreatedAt: time.Now()}}
	if err := s.CreateEntry(ctx, e2); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	e3 := newTestEntry("entry-3", "user-2", "Ben's", "text")
	e3.Photos = []domain.Photo{{ID: "photo-3", EntryID: "entry-3", FileName: "ccc.gif", CreatedAt: time.Now()}}
	if err := s.CreateEntry(ctx, e3); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	files, err := s.ListOwnerPhotoFiles(ctx, "user-1")
	if err != nil {
		t.Fatalf("list owner photo files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	seen := map[string]bool{}
	for _, f := range files {
		seen[f] = true
	}
	if !seen["aaa.jpg"] || !seen["bbb.png"] {
		t.Errorf("unexpected files: %v", files)
	}
	if seen["ccc.gif"] {
		t.Error("other owner's file leaked")
	}
}
