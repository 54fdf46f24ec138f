package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "songs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
}

func TestSongRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		song := models.NewSong(0, models.NewTrackKey("Song1", "ArtistA"), "vid1")

		if err := repo.Create(ctx, song); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}
		if song.ID() == "" {
			t.Error("song ID should be set after creation")
		}
		if song.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", song.Sequence())
		}
	})

	t.Run("GetByKey", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		key := models.NewTrackKey("Song1", "ArtistA")
		song := models.NewSong(0, key, "vid1")
		if err := repo.Create(ctx, song); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}

		got, err := repo.GetByKey(ctx, key)
		if err != nil {
			t.Fatalf("failed to get song by key: %v", err)
		}
		if got.ID() != song.ID() || got.YouTubeID() != "vid1" {
			t.Errorf("unexpected song %q %q", got.ID(), got.YouTubeID())
		}

		if _, err := repo.GetByKey(ctx, models.NewTrackKey("song1", "ArtistA")); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("lookup should be case sensitive, got %v", err)
		}
	})

	t.Run("DeleteByKey", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		key := models.NewTrackKey("Song1", "ArtistA")
		if err := repo.Create(ctx, models.NewSong(0, key, "vid1")); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}

		if err := repo.DeleteByKey(ctx, key); err != nil {
			t.Fatalf("failed to delete song: %v", err)
		}
		if _, err := repo.GetByKey(ctx, key); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound, got %v", err)
		}
		if n, _ := repo.Count(ctx); n != 0 {
			t.Errorf("deleted songs should not be counted, got %d", n)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		for _, s := range []*models.Song{
			models.NewSong(0, models.NewTrackKey("Song1", "ArtistA"), "vid1"),
			models.NewSong(0, models.NewTrackKey("Song2", "ArtistA"), "vid2"),
			models.NewSong(0, models.NewTrackKey("Song3", "ArtistB"), "vid3"),
		} {
			if err := repo.Create(ctx, s); err != nil {
				t.Fatalf("failed to create song: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 songs, got %d", len(all))
		}
		if all[0].Title() != "Song1" || all[2].Title() != "Song3" {
			t.Error("songs should be ordered by sequence")
		}

		byArtist, _ := repo.List(map[string]any{"artist": "ArtistA"})
		if len(byArtist) != 2 {
			t.Errorf("expected 2 songs for ArtistA, got %d", len(byArtist))
		}

		byVideo, _ := repo.List(map[string]any{"youtube_id": "vid3"})
		if len(byVideo) != 1 || byVideo[0].Title() != "Song3" {
			t.Errorf("expected Song3 for vid3, got %v", byVideo)
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected 1 song with limit, got %d", len(limited))
		}

		n, err := repo.Count(ctx)
		if err != nil || n != 3 {
			t.Errorf("expected count 3, got %d (%v)", n, err)
		}
	})
}

func TestSongRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewSongRepository(setupTestDB(t))
			if err := repo.Create(ctx, models.NewSong(0, models.NewTrackKey("Song1", "ArtistA"), "")); !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("DuplicateKey", func(t *testing.T) {
			repo := NewSongRepository(setupTestDB(t))
			key := models.NewTrackKey("Song1", "ArtistA")
			if err := repo.Create(ctx, models.NewSong(0, key, "vid1")); err != nil {
				t.Fatalf("failed to create first song: %v", err)
			}

			err := repo.Create(ctx, models.NewSong(0, key, "vid2"))
			if !IsUniqueViolation(err) {
				t.Fatalf("expected unique violation, got %v", err)
			}
		})

		t.Run("AfterSoftDelete", func(t *testing.T) {
			repo := NewSongRepository(setupTestDB(t))
			key := models.NewTrackKey("Song1", "ArtistA")
			if err := repo.Create(ctx, models.NewSong(0, key, "vid1")); err != nil {
				t.Fatalf("failed to create first song: %v", err)
			}
			if err := repo.DeleteByKey(ctx, key); err != nil {
				t.Fatalf("failed to delete by key: %v", err)
			}
			if err := repo.Create(ctx, models.NewSong(0, key, "vid2")); err != nil {
				t.Fatalf("expected re-create after delete to succeed: %v", err)
			}
		})
	})

	t.Run("NotFound errors", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))

		if _, err := repo.GetByKey(ctx, models.NewTrackKey("x", "y")); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("GetByKey: expected ErrSongNotFound, got %v", err)
		}

		if err := repo.DeleteByKey(ctx, models.NewTrackKey("x", "y")); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("DeleteByKey: expected ErrSongNotFound, got %v", err)
		}
	})

	t.Run("AlreadyDeleted", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		key := models.NewTrackKey("Song1", "ArtistA")
		if err := repo.Create(ctx, models.NewSong(0, key, "vid1")); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}
		if err := repo.DeleteByKey(ctx, key); err != nil {
			t.Fatalf("failed to delete song: %v", err)
		}
		if err := repo.DeleteByKey(ctx, key); err == nil {
			t.Error("expected error deleting twice")
		}
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSongRepository(db)
		db.Close()

		if _, err := repo.List(nil); err == nil {
			t.Error("expected error listing from closed database")
		}
	})
}

func TestSongStore(t *testing.T) {
	ctx := context.Background()
	key := models.NewTrackKey("Song2", "ArtistA")

	t.Run("Lookup miss", func(t *testing.T) {
		store := NewSongStore(NewSongRepository(setupTestDB(t)))

		id, found, err := store.Lookup(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found || id != "" {
			t.Errorf("expected miss, got %q %v", id, found)
		}
	})

	t.Run("Save then Lookup", func(t *testing.T) {
		store := NewSongStore(NewSongRepository(setupTestDB(t)))

		if err := store.Save(ctx, key, "vid2"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		id, found, err := store.Lookup(ctx, key)
		if err != nil || !found || id != "vid2" {
			t.Errorf("expected hit vid2, got %q %v %v", id, found, err)
		}
	})

	t.Run("Save keeps first mapping", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		store := NewSongStore(repo)

		if err := store.Save(ctx, key, "vid2"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := store.Save(ctx, key, "other"); err != nil {
			t.Fatalf("second save should be a no-op, got %v", err)
		}

		id, _, _ := store.Lookup(ctx, key)
		if id != "vid2" {
			t.Errorf("expected first mapping vid2, got %q", id)
		}
		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("expected 1 stored song, got %d", n)
		}
	})

	t.Run("Save invalid", func(t *testing.T) {
		store := NewSongStore(NewSongRepository(setupTestDB(t)))
		if err := store.Save(ctx, key, " "); err == nil {
			t.Error("expected error saving empty video id")
		}
	})

	t.Run("Forget", func(t *testing.T) {
		store := NewSongStore(NewSongRepository(setupTestDB(t)))
		if err := store.Save(ctx, key, "vid2"); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := store.Forget(ctx, key); err != nil {
			t.Fatalf("failed to forget: %v", err)
		}
		if _, found, _ := store.Lookup(ctx, key); found {
			t.Error("expected miss after forget")
		}
	})
}

func TestDeliveryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Record", func(t *testing.T) {
		repo := NewDeliveryRepository(setupTestDB(t))
		d := models.NewDelivery("viewer-1", models.NewTrackKey("Song1", "ArtistA"), models.NewVideoMatch("vid1"), models.SourceSearch)

		if err := repo.Record(ctx, d); err != nil {
			t.Fatalf("failed to record delivery: %v", err)
		}
		if d.ID() == "" {
			t.Error("delivery ID should be set after recording")
		}

		got, err := repo.Recent(ctx, "viewer-1", 1)
		if err != nil {
			t.Fatalf("failed to read deliveries: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 delivery, got %d", len(got))
		}
		if got[0].ID() != d.ID() || got[0].Source() != models.SourceSearch || got[0].YouTubeID() != "vid1" {
			t.Errorf("unexpected delivery %+v", got[0])
		}
	})

	t.Run("Record invalid", func(t *testing.T) {
		repo := NewDeliveryRepository(setupTestDB(t))
		d := models.NewDelivery("", models.NewTrackKey("Song1", "ArtistA"), models.NewVideoMatch("vid1"), models.SourceSearch)
		if err := repo.Record(ctx, d); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Recent", func(t *testing.T) {
		repo := NewDeliveryRepository(setupTestDB(t))
		base := time.Now().Add(-time.Hour)

		for i, title := range []string{"Song1", "Song2", "Song3"} {
			d := models.NewDelivery("viewer-1", models.NewTrackKey(title, "ArtistA"), models.NewVideoMatch("vid"), models.SourceStore)
			d.SetDeliveredAt(base.Add(time.Duration(i) * time.Minute))
			if err := repo.Record(ctx, d); err != nil {
				t.Fatalf("failed to record: %v", err)
			}
		}
		other := models.NewDelivery("viewer-2", models.NewTrackKey("Other", "ArtistB"), models.NewVideoMatch("vid"), models.SourceMemory)
		if err := repo.Record(ctx, other); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		recent, err := repo.Recent(ctx, "viewer-1", 2)
		if err != nil {
			t.Fatalf("failed to list recent: %v", err)
		}
		if len(recent) != 2 {
			t.Fatalf("expected 2 deliveries, got %d", len(recent))
		}
		if recent[0].Title() != "Song3" || recent[1].Title() != "Song2" {
			t.Errorf("expected newest first, got %s, %s", recent[0].Title(), recent[1].Title())
		}

		all, _ := repo.Recent(ctx, "", 0)
		if len(all) != 4 {
			t.Errorf("expected 4 deliveries, got %d", len(all))
		}
	})

	t.Run("Prune", func(t *testing.T) {
		repo := NewDeliveryRepository(setupTestDB(t))
		old := models.NewDelivery("viewer-1", models.NewTrackKey("Song1", "ArtistA"), models.NewVideoMatch("vid"), models.SourceSearch)
		old.SetDeliveredAt(time.Now().Add(-48 * time.Hour))
		fresh := models.NewDelivery("viewer-1", models.NewTrackKey("Song2", "ArtistA"), models.NewVideoMatch("vid"), models.SourceSearch)

		for _, d := range []*models.Delivery{old, fresh} {
			if err := repo.Record(ctx, d); err != nil {
				t.Fatalf("failed to record: %v", err)
			}
		}

		n, err := repo.Prune(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 pruned, got %d", n)
		}
	})
}
