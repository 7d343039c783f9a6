package syllabus

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/user"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	// ErrNotOwner is the ownership gate's denial. It is raised before any
	// speculative change or network call; the server re-validates anyway.
	ErrNotOwner = core.NewPermissionError("you may only edit or delete your own comments")
)

type (
	// Comment is a review note on a syllabus, optionally a reply to
	// another comment.
	Comment struct {
		ID         string    `json:"id"`
		SyllabusID string    `json:"syllabus_id"`
		ParentID   string    `json:"parent_id,omitempty"`
		AuthorID   string    `json:"author_id"`
		AuthorName string    `json:"author_name"`
		Body       string    `json:"body"`
		Resolved   bool      `json:"resolved"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	NewComment struct {
		SyllabusID string `json:"syllabus_id" validate:"required"`
		ParentID   string `json:"parent_id"`
		Body       string `json:"body" validate:"required"`
	}

	CommentRepository interface {
		CreateComment(c Comment) (Comment, error)
		GetCommentByID(id string) (Comment, error)
		// QueryCommentsBySyllabusID returns the thread oldest first.
		QueryCommentsBySyllabusID(syllabusID string) ([]Comment, error)
		UpdateComment(c Comment) (Comment, error)
		DeleteCommentsByID(ids ...string) error
	}

	CommentService struct {
		repo CommentRepository
	}
)

// OwnerID satisfies core.Owned: only the ownership gate reads it to
// authorize an edit/delete.
func (c Comment) OwnerID() string { return c.AuthorID }

func (nc *NewComment) Validate() error {
	nc.Body = core.CleanString(nc.Body)
	return core.Validate.Struct(nc)
}

func NewCommentService(repo CommentRepository) *CommentService {
	return &CommentService{repo: repo}
}

func (svc *CommentService) Add(nc NewComment, author user.User) (Comment, error) {
	if err := nc.Validate(); err != nil {
		return Comment{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateComment(Comment{
		SyllabusID: nc.SyllabusID,
		ParentID:   nc.ParentID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Body:       nc.Body,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *CommentService) ListBySyllabus(syllabusID string) ([]Comment, error) {
	return svc.repo.QueryCommentsBySyllabusID(syllabusID)
}

func (svc *CommentService) Edit(id, body string) (Comment, error) {
	c, err := svc.repo.GetCommentByID(id)
	if err != nil {
		return Comment{}, err
	}
	body = core.CleanString(body)
	if body == "" {
		return Comment{}, core.NewValidationError(nil, core.FieldError{Field: "body", Error: "this field is required"})
	}
	c.Body = body
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateComment(c)
}

func (svc *CommentService) Resolve(id string, resolved bool) (Comment, error) {
	c, err := svc.repo.GetCommentByID(id)
	if err != nil {
		return Comment{}, err
	}
	c.Resolved = resolved
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateComment(c)
}

func (svc *CommentService) Delete(id string) error {
	return svc.repo.DeleteCommentsByID(id)
}

// CommentsKey is the cache key for a syllabus's comment thread view.
func CommentsKey(syllabusID string) string { return "syllabus:" + syllabusID + ":comments" }

// CommentThread is the client-side controller over one syllabus's thread.
// Every mutation runs the snapshot/speculate/settle protocol against the
// cached view; edits and deletes are owner-gated first.
type CommentThread struct {
	svc        *CommentService
	cache      core.Cache
	syllabusID string
	actor      user.User
}

func NewCommentThread(svc *CommentService, cache core.Cache, syllabusID string, actor user.User) *CommentThread {
	return &CommentThread{svc: svc, cache: cache, syllabusID: syllabusID, actor: actor}
}

// Load returns the cached thread, fetching on a miss.
func (th *CommentThread) Load() ([]Comment, error) {
	key := CommentsKey(th.syllabusID)
	if v, err := th.cache.Read(key); err == nil {
		return v.([]Comment), nil
	} else if err != core.ErrCacheMiss {
		return nil, err
	}

	comments, err := th.svc.ListBySyllabus(th.syllabusID)
	if err != nil {
		return nil, err
	}
	if err := th.cache.Write(key, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Add appends a comment speculatively under a placeholder id; the
// post-success refresh replaces it with the authoritative record.
func (th *CommentThread) Add(ctx context.Context, body, parentID string) error {
	nc := NewComment{SyllabusID: th.syllabusID, ParentID: parentID, Body: body}
	if err := nc.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	speculative := Comment{
		ID:         core.PlaceholderID(),
		SyllabusID: th.syllabusID,
		ParentID:   parentID,
		AuthorID:   th.actor.ID,
		AuthorName: th.actor.Name,
		Body:       nc.Body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m := core.Mutation{
		Cache: th.cache,
		Keys:  []string{CommentsKey(th.syllabusID)},
		Apply: func(cache core.Cache) error {
			return th.rewrite(cache, func(comments []Comment) []Comment {
				return append(comments, speculative)
			})
		},
		Call: func(context.Context) error {
			_, err := th.svc.Add(nc, th.actor)
			return err
		},
		Refresh: th.refresh,
	}
	return m.Run(ctx)
}

// Edit rewrites a comment's body. Owner-gated.
func (th *CommentThread) Edit(ctx context.Context, id, body string) error {
	if err := th.authorizeOwner(id); err != nil {
		return err
	}

	m := core.Mutation{
		Cache: th.cache,
		Keys:  []string{CommentsKey(th.syllabusID)},
		Apply: func(cache core.Cache) error {
			return th.rewrite(cache, func(comments []Comment) []Comment {
				for i := range comments {
					if comments[i].ID == id {
						comments[i].Body = body
						comments[i].UpdatedAt = time.Now().UTC()
					}
				}
				return comments
			})
		},
		Call: func(context.Context) error {
			_, err := th.svc.Edit(id, body)
			return err
		},
		Refresh: th.refresh,
	}
	return m.Run(ctx)
}

// Delete removes a comment. Owner-gated.
func (th *CommentThread) Delete(ctx context.Context, id string) error {
	if err := th.authorizeOwner(id); err != nil {
		return err
	}

	m := core.Mutation{
		Cache: th.cache,
		Keys:  []string{CommentsKey(th.syllabusID)},
		Apply: func(cache core.Cache) error {
			return th.rewrite(cache, func(comments []Comment) []Comment {
				kept := comments[:0]
				for _, c := range comments {
					if c.ID != id && c.ParentID != id {
						kept = append(kept, c)
					}
				}
				return kept
			})
		},
		Call: func(context.Context) error {
			return th.svc.Delete(id)
		},
		Refresh: th.refresh,
	}
	return m.Run(ctx)
}

// Resolve flips a comment's resolved flag. Not owner-gated: anyone on the
// review can resolve or reopen a note.
func (th *CommentThread) Resolve(ctx context.Context, id string, resolved bool) error {
	m := core.Mutation{
		Cache: th.cache,
		Keys:  []string{CommentsKey(th.syllabusID)},
		Apply: func(cache core.Cache) error {
			return th.rewrite(cache, func(comments []Comment) []Comment {
				for i := range comments {
					if comments[i].ID == id {
						comments[i].Resolved = resolved
					}
				}
				return comments
			})
		},
		Call: func(context.Context) error {
			_, err := th.svc.Resolve(id, resolved)
			return err
		},
		Refresh: th.refresh,
	}
	return m.Run(ctx)
}

// authorizeOwner runs the ownership gate against the cached (or fetched)
// comment, strictly before any speculative change.
func (th *CommentThread) authorizeOwner(id string) error {
	comments, err := th.Load()
	if err != nil {
		return err
	}
	for _, c := range comments {
		if c.ID == id {
			return core.AuthorizeOwner(th.actor.ID, c, ErrNotOwner.Error())
		}
	}
	return ErrCommentNotFound
}

func (th *CommentThread) rewrite(cache core.Cache, mutate func([]Comment) []Comment) error {
	key := CommentsKey(th.syllabusID)
	v, err := cache.Read(key)
	if err != nil {
		if err == core.ErrCacheMiss {
			return nil
		}
		return err
	}
	return cache.Write(key, mutate(v.([]Comment)))
}

func (th *CommentThread) refresh(cache core.Cache) error {
	comments, err := th.svc.ListBySyllabus(th.syllabusID)
	if err != nil {
		return err
	}
	return cache.Write(CommentsKey(th.syllabusID), comments)
}
