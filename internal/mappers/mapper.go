// Package mappers converts between locally persisted entities and the
// backend's wire shapes. Conversions are pure and total: malformed optional
// fields degrade to safe defaults instead of failing, so a single bad field
// can never block a sync pass. Correctness-critical fields (identifiers,
// status) are the exception and surface explicit decode errors.
package mappers

import (
	"strconv"
	"time"

	"github.com/cropcare/fieldsync/internal/models"
)

// iso8601Millis is the backend's expected timestamp representation: UTC with
// millisecond precision. Parsing tolerates deviations (offsets, micro/nano
// precision) via RFC 3339 as a fallback.
const iso8601Millis = "2006-01-02T15:04:05.000Z"

// ToISO8601 encodes an epoch-millisecond timestamp as ISO-8601 UTC
func ToISO8601(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(iso8601Millis)
}

// FromISO8601 decodes an ISO-8601 timestamp to epoch milliseconds. A
// non-conforming string yields the current time rather than an error.
func FromISO8601(s string) int64 {
	if t, err := time.Parse(iso8601Millis, s); err == nil {
		return t.UnixMilli()
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli()
	}
	return time.Now().UTC().UnixMilli()
}

func optionalISO8601(millis *int64) *string {
	if millis == nil {
		return nil
	}
	s := ToISO8601(*millis)
	return &s
}

// numericID coerces a string identifier to the wire's numeric form, defaulting
// to zero when not parseable
func numericID(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}

// SessionToCreateDTO builds the creation shape for a session the backend has
// not seen yet
func SessionToCreateDTO(s *models.ScanSession, companyID int) models.SessionCreateDTO {
	return models.SessionCreateDTO{
		SessionID:    s.ID,
		CompanyID:    companyID,
		ZoneID:       numericID(s.ZoneID),
		CropID:       numericID(s.CropID),
		WorkerName:   s.WorkerName,
		ModelVersion: s.ModelVersion,
		StartedAt:    ToISO8601(s.StartedAt),
		Status:       string(s.Status),
	}
}

// SessionToUpdateDTO builds the partial-update shape used when
// resynchronizing an already-created session
func SessionToUpdateDTO(s *models.ScanSession) models.SessionUpdateDTO {
	return models.SessionUpdateDTO{
		SessionID:    s.ID,
		Status:       string(s.Status),
		FinishedAt:   optionalISO8601(s.FinishedAt),
		Notes:        s.Notes,
		TotalScans:   s.TotalScans,
		HealthyCount: s.HealthyCount,
		PlagueCount:  s.PlagueCount,
	}
}

// SessionToSyncData builds one batch-sync record for a session together with
// its unsynced results
func SessionToSyncData(s *models.ScanSession, results []*models.ScanResult, companyID int) models.SessionSyncData {
	dtos := make([]models.ResultCreateDTO, 0, len(results))
	for _, r := range results {
		dtos = append(dtos, ResultToCreateDTO(r))
	}

	return models.SessionSyncData{
		SessionID:    s.ID,
		CompanyID:    companyID,
		ZoneID:       numericID(s.ZoneID),
		CropID:       numericID(s.CropID),
		WorkerName:   s.WorkerName,
		ModelVersion: s.ModelVersion,
		StartedAt:    ToISO8601(s.StartedAt),
		FinishedAt:   optionalISO8601(s.FinishedAt),
		Status:       string(s.Status),
		TotalScans:   s.TotalScans,
		HealthyCount: s.HealthyCount,
		PlagueCount:  s.PlagueCount,
		Notes:        s.Notes,
		ScanResults:  dtos,
	}
}

// SessionsToSyncRequest builds the batch request over all unsynced sessions.
// resultsBySession maps session ID to that session's unsynced results.
func SessionsToSyncRequest(sessions []*models.ScanSession, resultsBySession map[string][]*models.ScanResult, companyID int) models.SessionSyncRequest {
	data := make([]models.SessionSyncData, 0, len(sessions))
	for _, s := range sessions {
		data = append(data, SessionToSyncData(s, resultsBySession[s.ID], companyID))
	}
	return models.SessionSyncRequest{Sessions: data}
}

// ResultToCreateDTO builds the creation shape for a scan result. The optional
// linked-report identifier is coerced to the wire's numeric form and dropped
// when not parseable.
func ResultToCreateDTO(r *models.ScanResult) models.ResultCreateDTO {
	var reportID *int
	if r.ReportID != nil {
		if n, err := strconv.Atoi(*r.ReportID); err == nil {
			reportID = &n
		}
	}

	return models.ResultCreateDTO{
		ResultID:       r.ID,
		SessionID:      r.SessionID,
		PhotoPath:      r.PhotoPath,
		Classification: r.Classification,
		Confidence:     r.Confidence,
		HasPlague:      r.HasPlague,
		ReportID:       reportID,
		ScannedAt:      ToISO8601(r.ScannedAt),
	}
}

// ResultsToSyncRequest builds the flat batch request over unsynced results
func ResultsToSyncRequest(results []*models.ScanResult) models.ResultSyncRequest {
	dtos := make([]models.ResultCreateDTO, 0, len(results))
	for _, r := range results {
		dtos = append(dtos, ResultToCreateDTO(r))
	}
	return models.ResultSyncRequest{Results: dtos}
}

// SessionFromDTO maps authoritative backend state to the local entity shape.
// Rows decoded from the backend are synced by definition. An unrecognized
// status is a decode error.
func SessionFromDTO(dto models.SessionDTO) (*models.ScanSession, error) {
	status, err := models.ParseSessionStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	var finishedAt *int64
	if dto.FinishedAt != nil {
		t := FromISO8601(*dto.FinishedAt)
		finishedAt = &t
	}

	return &models.ScanSession{
		ID:           dto.SessionID,
		WorkerID:     strconv.Itoa(dto.OwnerID),
		WorkerName:   dto.WorkerName,
		ZoneID:       strconv.Itoa(dto.ZoneID),
		ZoneName:     dto.ZoneName,
		CropID:       strconv.Itoa(dto.CropID),
		CropName:     dto.CropName,
		ModelVersion: dto.ModelVersion,
		StartedAt:    FromISO8601(dto.StartedAt),
		FinishedAt:   finishedAt,
		Status:       status,
		TotalScans:   dto.TotalScans,
		HealthyCount: dto.HealthyCount,
		PlagueCount:  dto.PlagueCount,
		Notes:        dto.Notes,
		Synced:       true,
	}, nil
}

// ResultFromDTO maps a backend result to the local entity shape
func ResultFromDTO(dto models.ResultDTO) *models.ScanResult {
	return &models.ScanResult{
		ID:             dto.ResultID,
		SessionID:      dto.SessionID,
		PhotoPath:      dto.PhotoPath,
		Classification: dto.Classification,
		Confidence:     dto.Confidence,
		HasPlague:      dto.HasPlague,
		ScannedAt:      FromISO8601(dto.ScannedAt),
		ReportID:       dto.ReportID,
		Synced:         true,
	}
}

// ZoneFromDTO maps a backend zone and its nested crops to local entities
func ZoneFromDTO(dto models.ZoneDTO) (*models.Zone, []*models.Crop) {
	zoneID := strconv.Itoa(dto.ID)
	zone := &models.Zone{
		ID:          zoneID,
		Name:        dto.Name,
		Description: dto.Description,
		Synced:      true,
	}

	crops := make([]*models.Crop, 0, len(dto.Crops))
	for _, c := range dto.Crops {
		crops = append(crops, &models.Crop{
			ID:      strconv.Itoa(c.ID),
			ZoneID:  zoneID,
			Name:    c.Name,
			Variety: c.Variety,
			Synced:  true,
		})
	}
	return zone, crops
}
