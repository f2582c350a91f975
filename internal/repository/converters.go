package repository

import (
	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/repository/models"
	"quiz-ingest/internal/util"
)

func toDomainQuiz(m *models.Quiz) *domain.Quiz {
	if m == nil {
		return nil
	}
	return &domain.Quiz{
		ID:            m.ID,
		Title:         m.Title,
		Status:        domain.QuizStatus(m.Status),
		ParseProgress: m.ParseProgress,
		QuestionCount: m.QuestionCount,
		HTML:          m.HTML.String,
		RawText:       m.RawText.String,
		FilePath:      m.FilePath.String,
		ErrorMsg:      m.ErrorMsg.String,
		IsPublished:   m.IsPublished != 0,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromDomainQuiz(q *domain.Quiz) *models.Quiz {
	if q == nil {
		return nil
	}
	return &models.Quiz{
		ID:            q.ID,
		Title:         q.Title,
		Status:        string(q.Status),
		ParseProgress: q.ParseProgress,
		QuestionCount: q.QuestionCount,
		HTML:          util.StringToNullString(q.HTML),
		RawText:       util.StringToNullString(q.RawText),
		FilePath:      util.StringToNullString(q.FilePath),
		ErrorMsg:      util.StringToNullString(q.ErrorMsg),
		IsPublished:   util.BoolToInt(q.IsPublished),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func toDomainJob(m *models.Job) *domain.Job {
	if m == nil {
		return nil
	}
	job := &domain.Job{
		ID:        m.ID,
		QuizID:    m.QuizID,
		Type:      m.Type,
		Status:    domain.JobStatus(m.Status),
		Progress:  m.Progress,
		Data:      m.Data.Data,
		Error:     m.Error.String,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Result.Valid {
		result := m.Result.Data
		job.Result = &result
	}
	return job
}

func fromDomainJob(j *domain.Job) *models.Job {
	if j == nil {
		return nil
	}
	m := &models.Job{
		ID:        j.ID,
		QuizID:    j.QuizID,
		Type:      j.Type,
		Status:    string(j.Status),
		Progress:  j.Progress,
		Data:      models.NewJSON(j.Data),
		Error:     util.StringToNullString(j.Error),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Result != nil {
		m.Result = models.NewJSON(*j.Result)
	}
	return m
}

func fromDomainParseLog(l *domain.ParseLog) *models.ParseLog {
	if l == nil {
		return nil
	}
	return &models.ParseLog{
		QuizID:         l.QuizID,
		RawTextLength:  l.RawTextLength,
		QuestionCount:  l.QuestionCount,
		Warnings:       util.StringToNullString(l.Warnings),
		DetectedFormat: string(l.DetectedFormat),
		CreatedAt:      l.CreatedAt,
	}
}
