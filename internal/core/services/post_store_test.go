package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/blobstore"
	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/bestfit/internal/core/domain"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
)

// stubPublisher compte les notifications sans broker.
type stubPublisher struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (s *stubPublisher) PublishPostCreated(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, post.ID)
	return nil
}

func (s *stubPublisher) PublishPostDeleted(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, postID)
	return nil
}

func (s *stubPublisher) PublishPhotoUpdated(context.Context, string, string) error { return nil }
func (s *stubPublisher) PublishAccountDeleted(context.Context, string) error       { return nil }

func newTestStore(t *testing.T) *PostStore {
	t.Helper()
	repo := repository.NewBlobRepo(blobstore.NewMemoryStore(), "posts")
	return NewPostStore(repo, &stubPublisher{})
}

func alice() domain.CurrentUser {
	return domain.CurrentUser{ID: "alice@example.com", DisplayName: "Alice", PhotoRef: "photos/alice.jpg"}
}

func bob() domain.CurrentUser {
	return domain.CurrentUser{ID: "bob@example.com", DisplayName: "Bob", PhotoRef: "photos/bob.jpg"}
}

func mustCreate(t *testing.T, store *PostStore, user domain.CurrentUser, caption string) *domain.Post {
	t.Helper()
	post, err := store.CreatePost(context.Background(), ports.CreatePostCmd{
		Author:   user,
		MediaRef: "media/" + caption + ".jpg",
		Caption:  caption,
	})
	require.NoError(t, err)
	return post
}

func TestCreatePost_PrependsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p1 := mustCreate(t, store, alice(), "first")
	p2 := mustCreate(t, store, alice(), "second")

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, p2.ID, feed[0].ID)
	assert.Equal(t, p1.ID, feed[1].ID)
}

func TestCreatePost_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreatePost(ctx, ports.CreatePostCmd{Author: alice(), Caption: "no media"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = store.CreatePost(ctx, ports.CreatePostCmd{Author: alice(), MediaRef: "media/x.jpg"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = store.CreatePost(ctx, ports.CreatePostCmd{MediaRef: "media/x.jpg", Caption: "no user"})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	// Aucune écriture partielle
	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestCreateDelete_IDsStayUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var kept []string
	for i := 0; i < 10; i++ {
		p := mustCreate(t, store, alice(), string(rune('a'+i)))
		if i%2 == 0 {
			require.NoError(t, store.DeletePost(ctx, p.ID, alice().ID))
		} else {
			kept = append(kept, p.ID)
		}
	}

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, len(kept))

	seen := make(map[string]bool)
	for _, p := range feed {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestToggleLike_Involution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := mustCreate(t, store, alice(), "likeable")

	liked, err := store.ToggleLike(ctx, post.ID, bob().ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob().ID}, liked.LikedBy)
	assert.Equal(t, 1, liked.LikeCount())

	unliked, err := store.ToggleLike(ctx, post.ID, bob().ID)
	require.NoError(t, err)
	assert.Empty(t, unliked.LikedBy)
	assert.Equal(t, 0, unliked.LikeCount())
}

func TestToggleLike_UnknownPost(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ToggleLike(context.Background(), "missing", bob().ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestDeletePost_OnlyAuthor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := mustCreate(t, store, alice(), "mine")

	before, err := store.Feed(ctx)
	require.NoError(t, err)

	err = store.DeletePost(ctx, post.ID, bob().ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// La collection est intacte après le refus
	after, err := store.Feed(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, store.DeletePost(ctx, post.ID, alice().ID))
	err = store.DeletePost(ctx, post.ID, alice().ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestDeleteByAuthor_RemovesExactlyMatching(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, alice(), "a1")
	pb := mustCreate(t, store, bob(), "b1")
	mustCreate(t, store, alice(), "a2")

	removed, err := store.DeleteByAuthor(ctx, alice().ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, pb.ID, feed[0].ID)
}

func TestDeleteByAuthor_ScrubsLikes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	post := mustCreate(t, store, bob(), "liked by alice")
	_, err := store.ToggleLike(ctx, post.ID, alice().ID)
	require.NoError(t, err)
	_, err = store.ToggleLike(ctx, post.ID, "carol@example.com")
	require.NoError(t, err)

	// Alice n'a aucun post, mais ses likes doivent disparaître
	removed, err := store.DeleteByAuthor(ctx, alice().ID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, []string{"carol@example.com"}, feed[0].LikedBy)
}

func TestCascadeAuthorPhoto(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, alice(), "a1")
	mustCreate(t, store, bob(), "b1")
	mustCreate(t, store, alice(), "a2")

	touched, err := store.CascadeAuthorPhoto(ctx, alice().ID, "photos/alice-new.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, touched)

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	for _, p := range feed {
		if p.AuthorID == alice().ID {
			assert.Equal(t, "photos/alice-new.jpg", p.AuthorPhoto)
		} else {
			assert.Equal(t, "photos/bob.jpg", p.AuthorPhoto)
		}
	}
}

func TestPostsByAuthor_PreservesOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, alice(), "a1")
	pb := mustCreate(t, store, bob(), "b1")
	pa2 := mustCreate(t, store, alice(), "a2")
	pa3 := mustCreate(t, store, alice(), "a3")

	own, err := store.PostsByAuthor(ctx, alice().ID)
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, pa3.ID, own[0].ID)
	assert.Equal(t, pa2.ID, own[1].ID)

	bobs, err := store.PostsByAuthor(ctx, bob().ID)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, pb.ID, bobs[0].ID)
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, alice(), "a1")
	mustCreate(t, store, bob(), "b1")

	require.NoError(t, store.ClearAll(ctx))

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestFeed_ReturnsSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, store, alice(), "a1")

	feed, err := store.Feed(ctx)
	require.NoError(t, err)

	// Muter l'instantané ne doit pas toucher la collection canonique
	feed[0].LikedBy = append(feed[0].LikedBy, "mallory@example.com")
	feed[0].AuthorPhoto = "hacked"

	fresh, err := store.Feed(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh[0].LikedBy)
	assert.Equal(t, "photos/alice.jpg", fresh[0].AuthorPhoto)
}

// Test de régression clé pour la sérialisation single-writer : sans le
// verrou, deux read-modify-write se croisent et l'un écrase l'autre
// (le classique lost update).
func TestToggleLike_ConcurrentNoLostUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := mustCreate(t, store, alice(), "popular")

	const likers = 16
	var wg sync.WaitGroup
	wg.Add(likers)
	for i := 0; i < likers; i++ {
		go func(n int) {
			defer wg.Done()
			userID := string(rune('a'+n)) + "@example.com"
			_, err := store.ToggleLike(ctx, post.ID, userID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, likers, feed[0].LikeCount())
}

// La cascade photo et un like sur un AUTRE post sont indépendants :
// les deux écritures doivent survivre, quel que soit l'ordre.
func TestCascadeAndLike_Commute(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pa := mustCreate(t, store, alice(), "alice post")
	pb := mustCreate(t, store, bob(), "bob post")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := store.CascadeAuthorPhoto(ctx, alice().ID, "photos/alice-new.jpg")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := store.ToggleLike(ctx, pb.ID, "carol@example.com")
		assert.NoError(t, err)
	}()
	wg.Wait()

	feed, err := store.Feed(ctx)
	require.NoError(t, err)
	for _, p := range feed {
		switch p.ID {
		case pa.ID:
			assert.Equal(t, "photos/alice-new.jpg", p.AuthorPhoto)
		case pb.ID:
			assert.Equal(t, []string{"carol@example.com"}, p.LikedBy)
		}
	}
}
