package mocks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/repository"
)

// MockCommentRepository is a map-backed mock of CommentRepository.
// Comments are associated with pages through MockPageRepository when one
// is attached, so OwnerOf and filtered listings behave like the joins do.
type MockCommentRepository struct {
	Comments    map[string]*models.Comment
	Pages       *MockPageRepository
	Projects    *MockProjectRepository
	Moderators  map[string]string // moderator id -> display name
	CreateError error
	ListError   error
}

var _ repository.CommentRepository = (*MockCommentRepository)(nil)

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{
		Comments:   make(map[string]*models.Comment),
		Moderators: make(map[string]string),
	}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	stored := *comment
	m.Comments[comment.ID] = &stored
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	comment, ok := m.Comments[id]
	if !ok || comment.DeletedAt != nil {
		return nil, nil
	}
	copied := *comment
	return &copied, nil
}

func (m *MockCommentRepository) Approve(ctx context.Context, id string) error {
	if comment, ok := m.Comments[id]; ok {
		comment.Approved = true
	}
	return nil
}

func (m *MockCommentRepository) SoftDelete(ctx context.Context, id string) error {
	if comment, ok := m.Comments[id]; ok {
		now := time.Now()
		comment.DeletedAt = &now
	}
	return nil
}

func (m *MockCommentRepository) SetAcceptNotify(ctx context.Context, id string, accept bool) error {
	comment, ok := m.Comments[id]
	if !ok || comment.DeletedAt != nil {
		return repository.ErrNotFound
	}
	comment.AcceptNotify = accept
	return nil
}

func (m *MockCommentRepository) matches(comment *models.Comment, filter repository.CommentFilter) bool {
	if comment.DeletedAt != nil {
		return false
	}
	if filter.Approved != nil && comment.Approved != *filter.Approved {
		return false
	}
	if filter.TopLevel && comment.ParentID != nil {
		return false
	}
	if filter.ParentID != "" && (comment.ParentID == nil || *comment.ParentID != filter.ParentID) {
		return false
	}

	if m.Pages == nil {
		return true
	}
	page := m.Pages.Pages[comment.PageID]
	if page == nil {
		return false
	}
	// ProjectID is required on the filter, same as the SQL implementation
	if page.ProjectID != filter.ProjectID {
		return false
	}
	if filter.PageSlug != "" && page.Slug != filter.PageSlug {
		return false
	}
	if filter.OwnerID != "" && m.Projects != nil {
		project := m.Projects.Projects[page.ProjectID]
		if project == nil || project.OwnerID != filter.OwnerID {
			return false
		}
	}
	return true
}

func (m *MockCommentRepository) filtered(filter repository.CommentFilter) []*models.Comment {
	var out []*models.Comment
	for _, comment := range m.Comments {
		if m.matches(comment, filter) {
			out = append(out, comment)
		}
	}
	// Newest first, id as tiebreak so ordering is deterministic
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *MockCommentRepository) List(ctx context.Context, filter repository.CommentFilter) ([]*repository.CommentRow, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	matched := m.filtered(filter)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	rows := make([]*repository.CommentRow, 0, len(matched))
	for _, comment := range matched {
		row := &repository.CommentRow{Comment: *comment}
		if m.Pages != nil {
			if page := m.Pages.Pages[comment.PageID]; page != nil {
				row.PageSlug = page.Slug
				row.PageTitle = page.Title
			}
		}
		if comment.ModeratorID != nil {
			row.ModeratorName = m.Moderators[*comment.ModeratorID]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MockCommentRepository) Count(ctx context.Context, filter repository.CommentFilter) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	return len(m.filtered(filter)), nil
}

func (m *MockCommentRepository) OwnerOf(ctx context.Context, commentID string) (string, string, error) {
	comment, ok := m.Comments[commentID]
	if !ok || comment.DeletedAt != nil || m.Pages == nil {
		return "", "", repository.ErrNotFound
	}
	page := m.Pages.Pages[comment.PageID]
	if page == nil || m.Projects == nil {
		return "", "", repository.ErrNotFound
	}
	project := m.Projects.Projects[page.ProjectID]
	if project == nil {
		return "", "", repository.ErrNotFound
	}
	return project.ID, project.OwnerID, nil
}

func (m *MockCommentRepository) ApprovalView(ctx context.Context, commentID string) (*models.CommentApprovalView, error) {
	comment, ok := m.Comments[commentID]
	if !ok || comment.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	view := &models.CommentApprovalView{
		ByNickname: comment.ByNickname,
		ByEmail:    comment.ByEmail,
		Content:    comment.Content,
		Approved:   comment.Approved,
	}
	if m.Pages != nil {
		if page := m.Pages.Pages[comment.PageID]; page != nil {
			view.PageTitle = page.Title
			view.PageSlug = page.Slug
			view.PageURL = page.URL
			if m.Projects != nil {
				if project := m.Projects.Projects[page.ProjectID]; project != nil {
					view.ProjectTitle = project.Title
				}
			}
		}
	}
	return view, nil
}

func (m *MockCommentRepository) CountApprovedBySlug(ctx context.Context, projectID, slug string) (int, error) {
	approved := true
	return m.Count(ctx, repository.CommentFilter{
		ProjectID: projectID,
		PageSlug:  slug,
		Approved:  &approved,
	})
}

func (m *MockCommentRepository) LatestPending(ctx context.Context, projectID string, from *time.Time, limit int) ([]*models.LatestComment, error) {
	approved := false
	matched := m.filtered(repository.CommentFilter{ProjectID: projectID, Approved: &approved})

	out := make([]*models.LatestComment, 0, len(matched))
	for _, comment := range matched {
		if from != nil && !comment.CreatedAt.After(*from) {
			continue
		}
		out = append(out, &models.LatestComment{
			ByNickname: comment.ByNickname,
			ByEmail:    comment.ByEmail,
			Content:    comment.Content,
			CreatedAt:  comment.CreatedAt,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MockPageRepository is a map-backed mock of PageRepository
type MockPageRepository struct {
	Pages       map[string]*models.Page
	UpsertError error
	nextID      int
}

var _ repository.PageRepository = (*MockPageRepository)(nil)

func NewMockPageRepository() *MockPageRepository {
	return &MockPageRepository{Pages: make(map[string]*models.Page)}
}

func (m *MockPageRepository) Upsert(ctx context.Context, projectID, slug, title, url string) (*models.Page, error) {
	if m.UpsertError != nil {
		return nil, m.UpsertError
	}
	for _, page := range m.Pages {
		if page.ProjectID == projectID && page.Slug == slug {
			if title != "" {
				page.Title = title
			}
			if url != "" {
				page.URL = url
			}
			copied := *page
			return &copied, nil
		}
	}
	m.nextID++
	page := &models.Page{
		ID:        fmt.Sprintf("page-%d", m.nextID),
		ProjectID: projectID,
		Slug:      slug,
		Title:     title,
		URL:       url,
		CreatedAt: time.Now(),
	}
	m.Pages[page.ID] = page
	copied := *page
	return &copied, nil
}

func (m *MockPageRepository) GetBySlug(ctx context.Context, projectID, slug string) (*models.Page, error) {
	for _, page := range m.Pages {
		if page.ProjectID == projectID && page.Slug == slug {
			copied := *page
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockPageRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	page, ok := m.Pages[id]
	if !ok {
		return nil, nil
	}
	copied := *page
	return &copied, nil
}

// MockProjectRepository is a map-backed mock of ProjectRepository
type MockProjectRepository struct {
	Projects map[string]*models.Project
	Users    *MockUserRepository
}

var _ repository.ProjectRepository = (*MockProjectRepository)(nil)

func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{Projects: make(map[string]*models.Project)}
}

func (m *MockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	stored := *project
	m.Projects[project.ID] = &stored
	return nil
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	project, ok := m.Projects[id]
	if !ok || project.DeletedAt != nil {
		return nil, nil
	}
	copied := *project
	return &copied, nil
}

func (m *MockProjectRepository) GetByToken(ctx context.Context, token string) (*models.Project, error) {
	for _, project := range m.Projects {
		if project.Token == token && project.DeletedAt == nil {
			copied := *project
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockProjectRepository) IsDeleted(ctx context.Context, id string) (bool, error) {
	project, ok := m.Projects[id]
	return !ok || project.DeletedAt != nil, nil
}

func (m *MockProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error) {
	var out []*models.Project
	for _, project := range m.Projects {
		if project.OwnerID == ownerID && project.DeletedAt == nil {
			copied := *project
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockProjectRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	projects, _ := m.ListByOwner(ctx, ownerID)
	return len(projects), nil
}

func (m *MockProjectRepository) Update(ctx context.Context, id, ownerID string, updates *models.ProjectUpdate) error {
	project, ok := m.Projects[id]
	if !ok || project.DeletedAt != nil || project.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	if updates.Title != nil {
		project.Title = *updates.Title
	}
	if updates.EnableNotification != nil {
		project.EnableNotification = *updates.EnableNotification
	}
	if updates.Webhook != nil {
		project.Webhook = *updates.Webhook
	}
	if updates.EnableWebhook != nil {
		project.EnableWebhook = *updates.EnableWebhook
	}
	return nil
}

func (m *MockProjectRepository) SetToken(ctx context.Context, id, ownerID, token string) error {
	project, ok := m.Projects[id]
	if !ok || project.DeletedAt != nil || project.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	project.Token = token
	return nil
}

func (m *MockProjectRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	project, ok := m.Projects[id]
	if !ok || project.DeletedAt != nil || project.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	now := time.Now()
	project.DeletedAt = &now
	return nil
}

func (m *MockProjectRepository) MarkLatestFetched(ctx context.Context, id string, at time.Time) error {
	project, ok := m.Projects[id]
	if !ok {
		return repository.ErrNotFound
	}
	project.FetchLatestCommentsAt = &at
	return nil
}

func (m *MockProjectRepository) NotificationTarget(ctx context.Context, projectID string) (*models.NotificationTarget, error) {
	project, ok := m.Projects[projectID]
	if !ok || project.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	target := &models.NotificationTarget{
		ProjectID:            project.ID,
		ProjectTitle:         project.Title,
		OwnerID:              project.OwnerID,
		NotificationsEnabled: project.EnableNotification,
		WebhookEnabled:       project.EnableWebhook,
		WebhookURL:           project.Webhook,
	}
	if m.Users != nil {
		if owner := m.Users.Users[project.OwnerID]; owner != nil {
			target.OwnerEmail = owner.Email
			target.NotificationEmail = owner.NotificationEmail
			target.NewCommentOptIn = owner.EnableNewCommentNotification
		}
	}
	return target, nil
}

// MockUserRepository is a map-backed mock of UserRepository
type MockUserRepository struct {
	Users map[string]*models.User
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	stored := *user
	m.Users[user.ID] = &stored
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.Users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) Update(ctx context.Context, id string, updates *models.UserUpdate) error {
	user, ok := m.Users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if updates.Name != nil {
		user.Name = *updates.Name
	}
	if updates.DisplayName != nil {
		user.DisplayName = *updates.DisplayName
	}
	if updates.NotificationEmail != nil {
		user.NotificationEmail = *updates.NotificationEmail
	}
	if updates.EnableNewCommentNotification != nil {
		user.EnableNewCommentNotification = *updates.EnableNewCommentNotification
	}
	return nil
}

func (m *MockUserRepository) SetNewCommentNotification(ctx context.Context, id string, enabled bool) error {
	user, ok := m.Users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EnableNewCommentNotification = enabled
	return nil
}

// MockUsageRepository is a map-backed mock of UsageRepository
type MockUsageRepository struct {
	Counters map[string]int
}

var _ repository.UsageRepository = (*MockUsageRepository)(nil)

func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{Counters: make(map[string]int)}
}

func usageKey(userID string, label models.UsageLabel) string {
	return userID + ":" + string(label)
}

func (m *MockUsageRepository) Get(ctx context.Context, userID string, label models.UsageLabel) (int, error) {
	return m.Counters[usageKey(userID, label)], nil
}

func (m *MockUsageRepository) Increment(ctx context.Context, userID string, label models.UsageLabel) error {
	m.Counters[usageKey(userID, label)]++
	return nil
}

func (m *MockUsageRepository) IncrementIfBelow(ctx context.Context, userID string, label models.UsageLabel, ceiling int) (bool, error) {
	key := usageKey(userID, label)
	if m.Counters[key] >= ceiling {
		return false, nil
	}
	m.Counters[key]++
	return true, nil
}

func (m *MockUsageRepository) ResetLabels(ctx context.Context, labels ...models.UsageLabel) error {
	for key := range m.Counters {
		for _, label := range labels {
			if len(key) > len(label) && key[len(key)-len(label):] == string(label) {
				m.Counters[key] = 0
			}
		}
	}
	return nil
}

// MockSubscriptionRepository is a map-backed mock of SubscriptionRepository
type MockSubscriptionRepository struct {
	Subscriptions map[string]*models.Subscription
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepository)(nil)

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{Subscriptions: make(map[string]*models.Subscription)}
}

func (m *MockSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, ok := m.Subscriptions[userID]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

// NewMockRepositories wires all repository mocks together so joins behave
func NewMockRepositories() (*repository.Repositories, *MockCommentRepository, *MockPageRepository, *MockProjectRepository, *MockUserRepository, *MockUsageRepository, *MockSubscriptionRepository) {
	comments := NewMockCommentRepository()
	pages := NewMockPageRepository()
	projects := NewMockProjectRepository()
	users := NewMockUserRepository()
	usage := NewMockUsageRepository()
	subs := NewMockSubscriptionRepository()

	comments.Pages = pages
	comments.Projects = projects
	projects.Users = users

	repos := &repository.Repositories{
		Comment:      comments,
		Page:         pages,
		Project:      projects,
		User:         users,
		Usage:        usage,
		Subscription: subs,
	}
	return repos, comments, pages, projects, users, usage, subs
}
