package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type rosterService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewRosterService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) RosterService {
	return &rosterService{
		repo:      repo,
		logger:    logger,
		validator: v,
	}
}

// ===== SCHOOL DIRECTORY =====

func (s *rosterService) ListSchools(ctx context.Context) ([]*models.School, error) {
	schools, err := s.repo.School().ListAll(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return schools, nil
}

func (s *rosterService) UpsertSchool(ctx context.Context, req *SchoolUpsertRequest) (*models.School, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	school := &models.School{
		Name:     strings.TrimSpace(req.Name),
		District: strings.TrimSpace(req.District),
	}
	if err := s.repo.School().Upsert(ctx, school); err != nil {
		return nil, storeFailure(err)
	}

	return school, nil
}

// ImportSchools reads an xlsx directory listing from r. The first sheet is
// used; a header row is skipped when the first cell is not a data value.
// Column layout: name, district.
func (s *rosterService) ImportSchools(ctx context.Context, r io.Reader) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	var schools []*models.School
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		name := strings.TrimSpace(row[0])
		if i == 0 && strings.EqualFold(name, "name") {
			continue
		}

		district := ""
		if len(row) > 1 {
			district = strings.TrimSpace(row[1])
		}
		schools = append(schools, &models.School{Name: name, District: district})
	}

	if len(schools) == 0 {
		return 0, nil
	}

	imported := 0
	for _, school := range schools {
		if err := s.repo.School().Upsert(ctx, school); err != nil {
			s.logger.Error("failed to import school", "name", school.Name, "error", err)
			continue
		}
		imported++
	}

	s.logger.Info("school directory import finished", "rows", len(schools), "imported", imported)

	return imported, nil
}

// ===== TEACHER ROSTER EXPORT =====

var rosterHeaders = []string{"ID", "Email", "Full Name", "Current School", "Years of Experience", "Approved"}

// ExportTeacherRoster renders all teacher profiles as an xlsx workbook.
func (s *rosterService) ExportTeacherRoster(ctx context.Context) ([]byte, error) {
	role := models.RoleTeacher

	var teachers []*models.Profile
	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		page, _, err := s.repo.Profile().List(ctx, repositories.ProfileFilters{
			Role:   &role,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, storeFailure(err)
		}
		teachers = append(teachers, page...)
		if len(page) < pageSize {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Teachers"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range rosterHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, teacher := range teachers {
		row := i + 2
		values := []interface{}{
			teacher.ID,
			teacher.Email,
			teacher.FullName(),
			"",
			"",
			false,
		}
		if teacher.Teacher != nil {
			if teacher.Teacher.CurrentSchool != nil {
				values[3] = *teacher.Teacher.CurrentSchool
			}
			if teacher.Teacher.YearsOfExperience != nil {
				values[4] = strconv.Itoa(*teacher.Teacher.YearsOfExperience)
			}
			values[5] = teacher.Teacher.Approved
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	return buf.Bytes(), nil
}

// ===== CHILD RECORDS =====

func (s *rosterService) CreateChild(ctx context.Context, parentID string, req *ChildRequest) (*models.Child, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	child := &models.Child{
		ID:        uuid.New().String(),
		ParentID:  parentID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
	}
	if len(req.MedicalNotes) > 0 {
		child.MedicalNotes = datatypes.JSON(req.MedicalNotes)
	}

	if err := s.repo.Child().Create(ctx, child); err != nil {
		return nil, storeFailure(err)
	}

	return child, nil
}

func (s *rosterService) GetChild(ctx context.Context, id string) (*models.Child, error) {
	child, err := s.repo.Child().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, storeFailure(err)
	}
	return child, nil
}

func (s *rosterService) ListChildren(ctx context.Context, parentID string) ([]*models.Child, error) {
	children, err := s.repo.Child().ListByParent(ctx, parentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return children, nil
}

func (s *rosterService) UpdateChild(ctx context.Context, id string, req *ChildRequest) (*models.Child, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	child, err := s.GetChild(ctx, id)
	if err != nil {
		return nil, err
	}

	child.FirstName = req.FirstName
	child.LastName = req.LastName
	child.BirthDate = req.BirthDate
	if len(req.MedicalNotes) > 0 {
		child.MedicalNotes = datatypes.JSON(req.MedicalNotes)
	}

	if err := s.repo.Child().Update(ctx, child); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, storeFailure(err)
	}

	return child, nil
}

func (s *rosterService) DeleteChild(ctx context.Context, id string) error {
	if err := s.repo.Child().Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return repositories.ErrNotFound
		}
		return storeFailure(err)
	}
	return nil
}
