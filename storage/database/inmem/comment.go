package inmemdb

import (
	"sort"

	"github.com/trezcool/silabo/core/syllabus"
)

type commentRepository struct {
	db *commentTable
}

func NewCommentRepository(db *DB) syllabus.CommentRepository {
	return &commentRepository{db: db.comment}
}

func (repo *commentRepository) CreateComment(c syllabus.Comment) (syllabus.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = newPK()
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *commentRepository) GetCommentByID(id string) (syllabus.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return syllabus.Comment{}, syllabus.ErrCommentNotFound
}

func (repo *commentRepository) QueryCommentsBySyllabusID(syllabusID string) ([]syllabus.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var comments []syllabus.Comment
	for _, c := range repo.db.table {
		if c.SyllabusID == syllabusID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (repo *commentRepository) UpdateComment(c syllabus.Comment) (syllabus.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[c.ID]; !ok {
		return syllabus.Comment{}, syllabus.ErrCommentNotFound
	}
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *commentRepository) DeleteCommentsByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
		for cid, c := range repo.db.table {
			if c.ParentID == id {
				delete(repo.db.table, cid)
			}
		}
	}
	return nil
}
