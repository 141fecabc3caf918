package services

import (
	"errors"
	"strings"
	"time"

	"bugbase/apperrors"
	"bugbase/models"
	"bugbase/repositories"

	"gorm.io/gorm"
)

// Caller is the identity decoded from a verified bearer token.
type Caller struct {
	ID       uint
	Role     models.Role
	Username string
}

// BugService is the lifecycle and policy engine: it owns every rule about
// who may create, see, transition, approve, assign and delete bugs.
type BugService interface {
	Create(caller Caller, input *CreateBugInput) (*BugView, error)
	List(caller Caller) ([]BugView, error)
	GetByID(caller Caller, id uint) (*BugView, error)
	ListAssigned(caller Caller) ([]BugView, error)
	ListQAQueue(caller Caller) ([]BugView, error)
	UpdateStatus(caller Caller, id uint, status string) (*BugView, error)
	Approve(caller Caller, id uint) (*BugView, error)
	Assign(caller Caller, id uint, developerID uint) (*BugView, error)
	Delete(caller Caller, id uint) error
}

type CreateBugInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// UserRef is the embedded identity of a bug's reporter or assignee.
type UserRef struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role,omitempty"` // populated for assignees only
}

// BugView is the caller-facing projection of a bug. Status is always
// present but nullable: nil means the status is hidden from this caller,
// so the response shape never varies.
type BugView struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Status      *models.BugStatus  `json:"status"`
	Priority    models.BugPriority `json:"priority"`
	Reporter    *UserRef           `json:"reporter,omitempty"`
	AssignedTo  *UserRef           `json:"assignedTo,omitempty"`
	IsApproved  bool               `json:"isApproved"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type bugService struct {
	bugs  repositories.BugRepository
	users repositories.UserRepository
}

var _ BugService = (*bugService)(nil)

// NewBugService creates a new BugService instance
func NewBugService(bugs repositories.BugRepository, users repositories.UserRepository) BugService {
	return &bugService{bugs: bugs, users: users}
}

// Create reports a new bug. Only user-role callers may report; the
// reporter is always the caller and the bug starts open and unapproved,
// whatever the client sent.
func (s *bugService) Create(caller Caller, input *CreateBugInput) (*BugView, error) {
	if caller.Role != models.RoleUser {
		return nil, apperrors.Forbidden("only users can create bugs")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}

	priority := models.PriorityLow
	if input.Priority != "" {
		priority = models.BugPriority(input.Priority)
		if !priority.IsValid() {
			return nil, apperrors.Validation("invalid priority")
		}
	}

	bug := models.Bug{
		Title:       title,
		Description: input.Description,
		Status:      models.StatusOpen,
		Priority:    priority,
		ReporterID:  caller.ID,
		IsApproved:  false,
	}
	if err := s.bugs.Create(&bug); err != nil {
		return nil, apperrors.Internal("failed to create bug", err)
	}

	return s.loadView(caller, bug.ID)
}

// List returns the bugs visible to the caller's role. Admins see
// everything; users their own reports; devs their active assignments;
// everyone else only approved bugs that have progressed past open, with
// the status hidden unless they reported the bug themselves.
func (s *bugService) List(caller Caller) ([]BugView, error) {
	var filter repositories.BugFilter

	switch caller.Role {
	case models.RoleAdmin:
		// no filter, all bugs
	case models.RoleUser:
		filter.ReporterID = &caller.ID
	case models.RoleDev:
		filter.AssignedToID = &caller.ID
		filter.Statuses = []models.BugStatus{models.StatusInProgress, models.StatusQA}
	default:
		approved := true
		filter.Approved = &approved
		filter.Statuses = []models.BugStatus{models.StatusInProgress, models.StatusQA, models.StatusClosed}
	}

	bugs, err := s.bugs.Find(filter, repositories.OrderNewestCreated)
	if err != nil {
		return nil, apperrors.Internal("failed to list bugs", err)
	}
	return s.buildViews(caller, bugs), nil
}

// GetByID fetches a single bug. Visible to admins, the reporter, or anyone
// once the bug is approved; the status field is included only for admins
// and the reporter.
func (s *bugService) GetByID(caller Caller, id uint) (*BugView, error) {
	bug, err := s.findBug(id)
	if err != nil {
		return nil, err
	}

	canView := caller.Role == models.RoleAdmin || bug.ReporterID == caller.ID || bug.IsApproved
	if !canView {
		return nil, apperrors.Forbidden("access denied")
	}

	view := s.buildView(caller, bug)
	// The detail view is stricter than the queue views: only admins and
	// the reporter get the status here.
	if caller.Role != models.RoleAdmin && bug.ReporterID != caller.ID {
		view.Status = nil
	}
	return &view, nil
}

// ListAssigned returns the caller's assigned work queue. Devs only. The
// filter spans open, inprogress and qa so newly assigned bugs show up
// before the developer touches the status.
func (s *bugService) ListAssigned(caller Caller) ([]BugView, error) {
	if caller.Role != models.RoleDev {
		return nil, apperrors.Forbidden("access denied")
	}

	filter := repositories.BugFilter{
		AssignedToID: &caller.ID,
		Statuses:     []models.BugStatus{models.StatusOpen, models.StatusInProgress, models.StatusQA},
	}
	bugs, err := s.bugs.Find(filter, repositories.OrderNewestUpdated)
	if err != nil {
		return nil, apperrors.Internal("failed to list assigned bugs", err)
	}
	return s.buildViews(caller, bugs), nil
}

// ListQAQueue returns all bugs currently in qa status, for reviewers.
func (s *bugService) ListQAQueue(caller Caller) ([]BugView, error) {
	if caller.Role != models.RoleQA && caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("access denied")
	}

	filter := repositories.BugFilter{
		Statuses: []models.BugStatus{models.StatusQA},
	}
	bugs, err := s.bugs.Find(filter, repositories.OrderNewestUpdated)
	if err != nil {
		return nil, apperrors.Internal("failed to list qa bugs", err)
	}
	return s.buildViews(caller, bugs), nil
}

// UpdateStatus moves a bug to a new workflow state. Devs and QA are gated
// on admin approval; plain users may never change status. Only the status
// column is written.
func (s *bugService) UpdateStatus(caller Caller, id uint, status string) (*BugView, error) {
	newStatus := models.BugStatus(status)
	if !newStatus.IsValid() {
		return nil, apperrors.Validation("invalid status")
	}

	bug, err := s.findBug(id)
	if err != nil {
		return nil, err
	}

	if (caller.Role == models.RoleDev || caller.Role == models.RoleQA) && !bug.IsApproved {
		return nil, apperrors.Forbidden("bug not approved by admin")
	}
	if caller.Role != models.RoleAdmin && caller.Role != models.RoleDev && caller.Role != models.RoleQA {
		return nil, apperrors.Forbidden("access denied")
	}

	if !models.CanTransition(bug.Status, newStatus) {
		return nil, apperrors.Validation("invalid status transition")
	}

	updated, err := s.bugs.UpdateFields(id, map[string]interface{}{"status": newStatus})
	if err != nil {
		return nil, apperrors.Internal("failed to update bug status", err)
	}

	view := s.buildView(caller, updated)
	return &view, nil
}

// Approve marks a bug as admin-approved, unblocking dev/qa status changes
// and making it visible to non-reporters. Approving an already approved
// bug is a no-op.
func (s *bugService) Approve(caller Caller, id uint) (*BugView, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can approve bugs")
	}

	if _, err := s.findBug(id); err != nil {
		return nil, err
	}

	updated, err := s.bugs.UpdateFields(id, map[string]interface{}{"is_approved": true})
	if err != nil {
		return nil, apperrors.Internal("failed to approve bug", err)
	}

	view := s.buildView(caller, updated)
	return &view, nil
}

// Assign binds a bug to a developer. Assignment implies approval and
// starts work: assignedTo, status=inprogress and isApproved=true are
// written together in a single atomic update.
func (s *bugService) Assign(caller Caller, id uint, developerID uint) (*BugView, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can assign bugs")
	}
	if developerID == 0 {
		return nil, apperrors.Validation("developer ID is required")
	}

	developer, err := s.users.FindByID(developerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("developer not found")
		}
		return nil, apperrors.Internal("database error retrieving developer", err)
	}
	if developer.Role != models.RoleDev {
		return nil, apperrors.Validation("assignee must have the dev role")
	}

	if _, err := s.findBug(id); err != nil {
		return nil, err
	}

	updated, err := s.bugs.UpdateFields(id, map[string]interface{}{
		"assigned_to_id": developerID,
		"status":         models.StatusInProgress,
		"is_approved":    true,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to assign bug", err)
	}

	view := s.buildView(caller, updated)
	return &view, nil
}

// Delete removes a bug. Admins only.
func (s *bugService) Delete(caller Caller, id uint) error {
	if caller.Role != models.RoleAdmin {
		return apperrors.Forbidden("only admins can delete a bug")
	}

	if err := s.bugs.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("no bug with the given ID found")
		}
		return apperrors.Internal("failed to delete bug", err)
	}
	return nil
}

// --- helpers ---

func (s *bugService) findBug(id uint) (*models.Bug, error) {
	bug, err := s.bugs.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no bug with the given ID found")
		}
		return nil, apperrors.Internal("database error retrieving bug", err)
	}
	return bug, nil
}

func (s *bugService) loadView(caller Caller, id uint) (*BugView, error) {
	bug, err := s.findBug(id)
	if err != nil {
		return nil, err
	}
	view := s.buildView(caller, bug)
	return &view, nil
}

// buildView projects a bug for the caller. The status pointer is nil when
// statusVisible denies it.
func (s *bugService) buildView(caller Caller, bug *models.Bug) BugView {
	view := BugView{
		ID:          bug.ID,
		Title:       bug.Title,
		Description: bug.Description,
		Priority:    bug.Priority,
		IsApproved:  bug.IsApproved,
		CreatedAt:   bug.CreatedAt,
		UpdatedAt:   bug.UpdatedAt,
	}

	if statusVisible(caller, bug) {
		status := bug.Status
		view.Status = &status
	}

	if bug.Reporter.ID != 0 {
		view.Reporter = &UserRef{
			ID:       bug.Reporter.ID,
			Username: bug.Reporter.Username,
			Email:    bug.Reporter.Email,
		}
	}
	if bug.AssignedTo != nil && bug.AssignedTo.ID != 0 {
		view.AssignedTo = &UserRef{
			ID:       bug.AssignedTo.ID,
			Username: bug.AssignedTo.Username,
			Email:    bug.AssignedTo.Email,
			Role:     bug.AssignedTo.Role,
		}
	}
	return view
}

func (s *bugService) buildViews(caller Caller, bugs []models.Bug) []BugView {
	views := make([]BugView, len(bugs))
	for i := range bugs {
		views[i] = s.buildView(caller, &bugs[i])
	}
	return views
}

// statusVisible decides whether the caller may see a bug's status. Admins
// and the reporter always can; a dev additionally sees it on their own
// assignments. Everyone else gets a null status.
func statusVisible(caller Caller, bug *models.Bug) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDev:
		return (bug.AssignedToID != nil && *bug.AssignedToID == caller.ID) || bug.ReporterID == caller.ID
	default:
		return bug.ReporterID == caller.ID
	}
}
