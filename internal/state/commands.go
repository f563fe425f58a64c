package state

import (
	"github.com/UkralStul/blog-state/internal/domain"
)

// Command - одна команда обновления состояния.
// Apply не меняет переданное состояние и не выполняет ввод-вывод.
type Command interface {
	Name() string
	Apply(State) State
}

// SavePostsList заменяет проекцию списка и сливает посты в Entity Store.
type SavePostsList struct {
	Posts  []domain.Post
	Paging domain.Paging
}

func (SavePostsList) Name() string { return "savePostsList" }

func (c SavePostsList) Apply(s State) State {
	posts := s.copyPosts()
	list := make([]string, 0, len(c.Posts))
	for _, post := range c.Posts {
		post.Content = ""
		post.CommentIDs = append([]string{}, post.CommentIDs...)
		posts[post.ID] = post
		list = append(list, post.ID)
	}

	s.PostsList = list
	s.Paging = c.Paging
	s.PostsByID = posts
	return s
}

// ClearCurrentPost очищает текущий пост и выключает редактор.
type ClearCurrentPost struct{}

func (ClearCurrentPost) Name() string { return "clearCurrentPost" }

func (ClearCurrentPost) Apply(s State) State {
	s.Current = CurrentView{Post: CurrentPost{Comments: []domain.Comment{}}}
	return s
}

// SaveCurrentPost делает пост активным и переносит в него поля из Entity Store.
// Если пост еще не встречался, в Entity Store появляется заготовка с одним id.
type SaveCurrentPost struct {
	PostID string
}

func (SaveCurrentPost) Name() string { return "saveCurrentPost" }

func (c SaveCurrentPost) Apply(s State) State {
	post, known := s.PostsByID[c.PostID]
	if !known {
		post = domain.Post{ID: c.PostID}
		posts := s.copyPosts()
		posts[c.PostID] = post
		s.PostsByID = posts
	}

	current := s.Current.Post
	current.PostID = c.PostID
	current.Author = post.Author
	current.Title = post.Title
	current.Visible = post.Visible
	current.CreatedAt = post.CreatedAt
	s.Current.Post = current
	return s
}

// SavePostContent записывает текст поста, если PostID все еще активен.
type SavePostContent struct {
	PostID  string
	Content string
}

func (SavePostContent) Name() string { return "savePostContent" }

func (c SavePostContent) Apply(s State) State {
	if s.ActivePostID() != c.PostID {
		return s
	}
	s.Current.Post.Content = c.Content
	return s
}

// SaveComments целиком заменяет комментарии текущего поста,
// если PostID все еще активен, и синхронизирует id в Entity Store.
type SaveComments struct {
	PostID   string
	Comments []domain.Comment
}

func (SaveComments) Name() string { return "saveComments" }

func (c SaveComments) Apply(s State) State {
	if s.ActivePostID() != c.PostID {
		return s
	}

	ids := make([]string, len(c.Comments))
	for i, comment := range c.Comments {
		ids[i] = comment.ID
	}
	posts := s.copyPosts()
	post := posts[c.PostID]
	post.CommentIDs = ids
	posts[c.PostID] = post

	s.PostsByID = posts
	s.Current.Post.Comments = append([]domain.Comment{}, c.Comments...)
	return s
}

// PushNewComment добавляет созданный комментарий в оба представления.
type PushNewComment struct {
	PostID  string
	Comment domain.Comment
}

func (PushNewComment) Name() string { return "pushNewComment" }

func (c PushNewComment) Apply(s State) State {
	posts := s.copyPosts()
	post, known := posts[c.PostID]
	if !known {
		post = domain.Post{ID: c.PostID}
	}
	post.CommentIDs = append(append([]string{}, post.CommentIDs...), c.Comment.ID)
	posts[c.PostID] = post
	s.PostsByID = posts

	// Пока ждали ответа, пользователь мог уйти на другой пост
	if s.ActivePostID() == c.PostID {
		comments := make([]domain.Comment, 0, len(s.Current.Post.Comments)+1)
		comments = append(comments, s.Current.Post.Comments...)
		s.Current.Post.Comments = append(comments, c.Comment)
	}
	return s
}

// RemoveComment удаляет комментарий по id из обоих представлений.
// Текущий пост затрагивается, только если он и есть Ascendant.
type RemoveComment struct {
	Ascendant string
	CommentID string
}

func (RemoveComment) Name() string { return "removeComment" }

func (c RemoveComment) Apply(s State) State {
	if post, known := s.PostsByID[c.Ascendant]; known {
		ids := make([]string, 0, len(post.CommentIDs))
		for _, id := range post.CommentIDs {
			if id != c.CommentID {
				ids = append(ids, id)
			}
		}
		post.CommentIDs = ids
		posts := s.copyPosts()
		posts[c.Ascendant] = post
		s.PostsByID = posts
	}

	// id комментария уникален только внутри поста
	if s.ActivePostID() != c.Ascendant {
		return s
	}
	comments := make([]domain.Comment, 0, len(s.Current.Post.Comments))
	for _, comment := range s.Current.Post.Comments {
		if comment.ID != c.CommentID {
			comments = append(comments, comment)
		}
	}
	s.Current.Post.Comments = comments
	return s
}

// SaveUpdatedComment заменяет комментарий с тем же id в активном посте и закрывает редактор.
type SaveUpdatedComment struct {
	Comment domain.Comment
}

func (SaveUpdatedComment) Name() string { return "saveUpdatedComment" }

func (c SaveUpdatedComment) Apply(s State) State {
	s.Current.IsEditing = false
	if s.ActivePostID() != c.Comment.PostID {
		return s
	}

	comments := make([]domain.Comment, len(s.Current.Post.Comments))
	for i, comment := range s.Current.Post.Comments {
		if comment.ID == c.Comment.ID {
			comment = c.Comment
		}
		comments[i] = comment
	}
	s.Current.Post.Comments = comments
	return s
}

type ShowEditor struct{}

func (ShowEditor) Name() string { return "showEditor" }

func (ShowEditor) Apply(s State) State {
	s.Current.IsEditing = true
	return s
}

type CloseEditor struct{}

func (CloseEditor) Name() string { return "closeEditor" }

func (CloseEditor) Apply(s State) State {
	s.Current.IsEditing = false
	return s
}
