package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 10
	// Replies are loaded eagerly; this caps the fetch per tree level.
	replyFetchCap = 100
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	comments repository.CommentRepository
	pages    repository.PageRepository
	users    repository.UserRepository
	hooks    HookService
	log      zerolog.Logger
}

// newCommentService creates a new CommentService
func newCommentService(repos *repository.Repositories, log zerolog.Logger) *commentService {
	return &commentService{
		comments: repos.Comment,
		pages:    repos.Page,
		users:    repos.User,
		log:      log.With().Str("service", "comment").Logger(),
	}
}

// SetHooks wires the notification fanout. Dispatch happens after the
// comment write has committed and never affects its outcome.
func (s *commentService) SetHooks(hooks HookService) {
	s.hooks = hooks
}

// Add creates a pending visitor comment, lazily creating its page
func (s *commentService) Add(ctx context.Context, req *AddCommentRequest) (*models.Comment, error) {
	page, err := s.pages.Upsert(ctx, req.ProjectID, req.PageSlug, req.PageTitle, req.PageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert page: %w", err)
	}

	var parent *models.Comment
	if req.ParentID != "" {
		parent, err = s.comments.GetByID(ctx, req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent comment: %w", err)
		}
		// The parent must live on the same page as the reply
		if parent == nil || parent.PageID != page.ID {
			return nil, ErrParentNotFound
		}
	}

	comment := &models.Comment{
		ID:         uuid.New().String(),
		PageID:     page.ID,
		Content:    req.Content,
		ByNickname: req.Nickname,
		ByEmail:    req.Email,
	}
	if req.ParentID != "" {
		parentID := req.ParentID
		comment.ParentID = &parentID
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.log.Info().
		Str("comment_id", comment.ID).
		Str("project_id", req.ProjectID).
		Str("page_slug", req.PageSlug).
		Msg("Comment created")

	if s.hooks != nil {
		s.hooks.NewComment(comment, req.ProjectID)
		if parent != nil {
			s.hooks.Reply(parent, comment)
		}
	}

	return comment, nil
}

// AddModeratorReply appends an already-approved reply authored by a
// project owner acting as moderator.
func (s *commentService) AddModeratorReply(ctx context.Context, parentID, content, moderatorID string) (*models.Comment, error) {
	parent, err := s.comments.GetByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent comment: %w", err)
	}
	if parent == nil {
		return nil, ErrParentNotFound
	}

	moderator, err := s.users.GetByID(ctx, moderatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load moderator: %w", err)
	}
	if moderator == nil {
		return nil, ErrModeratorNotFound
	}

	modID := moderatorID
	reply := &models.Comment{
		ID:          uuid.New().String(),
		PageID:      parent.PageID,
		Content:     content,
		ByNickname:  moderator.ModeratorName(),
		ByEmail:     moderator.Email,
		ParentID:    &parentID,
		ModeratorID: &modID,
		Approved:    true,
	}

	if err := s.comments.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("failed to create moderator reply: %w", err)
	}

	s.log.Info().
		Str("comment_id", reply.ID).
		Str("parent_id", parentID).
		Str("moderator_id", moderatorID).
		Msg("Moderator reply created")

	// Moderator comments never fan out as new comments, but the parent
	// author may have opted into reply notifications.
	if s.hooks != nil {
		s.hooks.Reply(parent, reply)
	}

	return reply, nil
}

// Approve marks a comment approved. Approving an already-approved
// comment is a no-op.
func (s *commentService) Approve(ctx context.Context, commentID string) error {
	if err := s.comments.Approve(ctx, commentID); err != nil {
		return fmt.Errorf("failed to approve comment: %w", err)
	}
	return nil
}

// SoftDelete hides a comment from all further reads. Replies are not
// cascaded; they stay visible unless deleted individually.
func (s *commentService) SoftDelete(ctx context.Context, commentID string) error {
	if err := s.comments.SoftDelete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// List assembles the comment tree for a project: paginated top-level
// comments, each with its full reply subtree loaded eagerly. Newest first
// at every level.
func (s *commentService) List(ctx context.Context, projectID string, opts ListOptions) (*models.CommentWrapper, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageNum := opts.Page
	if pageNum <= 0 {
		pageNum = 1
	}

	baseFilter := repository.CommentFilter{
		ProjectID: projectID,
		PageSlug:  opts.PageSlug,
		OwnerID:   opts.OwnerID,
		Approved:  opts.Approved,
	}

	topFilter := baseFilter
	topFilter.TopLevel = true
	topFilter.Limit = pageSize
	topFilter.Offset = (pageNum - 1) * pageSize

	total, err := s.comments.Count(ctx, topFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	rows, err := s.comments.List(ctx, topFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	items := make([]*models.CommentItem, 0, len(rows))
	// Worklist instead of recursion so pathological reply depth cannot
	// exhaust the stack.
	var work []*models.CommentItem
	for _, row := range rows {
		item := s.buildItem(row, opts.TimezoneOffset)
		items = append(items, item)
		work = append(work, item)
	}

	for len(work) > 0 {
		item := work[0]
		work = work[1:]

		replyFilter := baseFilter
		replyFilter.ParentID = item.ID
		replyFilter.Limit = replyFetchCap
		replyFilter.Offset = 0

		replyCount, err := s.comments.Count(ctx, replyFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to count replies: %w", err)
		}
		replyRows, err := s.comments.List(ctx, replyFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to list replies: %w", err)
		}

		replies := make([]*models.CommentItem, 0, len(replyRows))
		for _, row := range replyRows {
			child := s.buildItem(row, opts.TimezoneOffset)
			replies = append(replies, child)
			work = append(work, child)
		}

		item.Replies = &models.CommentWrapper{
			Data:         replies,
			CommentCount: replyCount,
			PageSize:     replyFetchCap,
			PageCount:    pageCount(replyCount, replyFetchCap),
		}
	}

	return &models.CommentWrapper{
		Data:         items,
		CommentCount: total,
		PageSize:     pageSize,
		PageCount:    pageCount(total, pageSize),
	}, nil
}

func (s *commentService) buildItem(row *repository.CommentRow, timezoneOffset int) *models.CommentItem {
	item := &models.CommentItem{
		Comment:         row.Comment,
		ParsedContent:   renderContent(row.Content),
		ParsedCreatedAt: formatDisplayTime(row.CreatedAt, timezoneOffset),
		Page: models.CommentPageInfo{
			ID:    row.PageID,
			Slug:  row.PageSlug,
			Title: row.PageTitle,
		},
	}
	if row.ModeratorID != nil {
		item.Moderator = &models.CommentModerator{DisplayName: row.ModeratorName}
	}
	return item
}

func pageCount(total, pageSize int) int {
	count := (total + pageSize - 1) / pageSize
	if count < 1 {
		return 1
	}
	return count
}

// OwnerOf resolves the project and owner a comment belongs to
func (s *commentService) OwnerOf(ctx context.Context, commentID string) (string, string, error) {
	projectID, ownerID, err := s.comments.OwnerOf(ctx, commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", "", ErrCommentNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve comment owner: %w", err)
	}
	return projectID, ownerID, nil
}

// ApprovalView loads the payload shown on the token approval page
func (s *commentService) ApprovalView(ctx context.Context, commentID string) (*models.CommentApprovalView, error) {
	view, err := s.comments.ApprovalView(ctx, commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load approval view: %w", err)
	}
	return view, nil
}

// CountApproved returns visible approved comment counts per page slug
func (s *commentService) CountApproved(ctx context.Context, projectID string, slugs []string) (map[string]int, error) {
	counts := make(map[string]int, len(slugs))
	for _, slug := range slugs {
		count, err := s.comments.CountApprovedBySlug(ctx, projectID, slug)
		if err != nil {
			return nil, fmt.Errorf("failed to count comments for %q: %w", slug, err)
		}
		counts[slug] = count
	}
	return counts, nil
}

// ConfirmReplyNotification opts a comment author into reply notifications
func (s *commentService) ConfirmReplyNotification(ctx context.Context, commentID string) error {
	err := s.comments.SetAcceptNotify(ctx, commentID, true)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to confirm reply notification: %w", err)
	}
	return nil
}
