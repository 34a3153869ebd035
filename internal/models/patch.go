package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/abrezinsky/galajudge/internal/errors"
)

// NotePatch is a partial note write. A field is only sent when its Has flag
// is set; a set field with a nil pointer clears the stored value.
type NotePatch struct {
	HasValue            bool
	Value               *int
	HasComment          bool
	Comment             *string
	TargetParticipantID *int
}

// ValuePatch returns a patch setting only the rating
func ValuePatch(v *int) NotePatch {
	return NotePatch{HasValue: true, Value: v}
}

// CommentPatch returns a patch setting only the comment
func CommentPatch(c *string) NotePatch {
	return NotePatch{HasComment: true, Comment: c}
}

// IntPtr and StringPtr are small helpers for building patches
func IntPtr(v int) *int          { return &v }
func StringPtr(s string) *string { return &s }

// IsEmpty reports whether the patch carries no field
func (p NotePatch) IsEmpty() bool {
	return !p.HasValue && !p.HasComment
}

// Merge overlays later on p: a field present in later replaces p's,
// fields only present in p are kept.
func (p NotePatch) Merge(later NotePatch) NotePatch {
	out := p
	if later.HasValue {
		out.HasValue = true
		out.Value = later.Value
	}
	if later.HasComment {
		out.HasComment = true
		out.Comment = later.Comment
	}
	if later.TargetParticipantID != nil {
		out.TargetParticipantID = later.TargetParticipantID
	}
	return out
}

// Apply returns n with the patch's present fields written over it
func (p NotePatch) Apply(n Note) Note {
	if p.HasValue {
		n.Value = p.Value
	}
	if p.HasComment {
		n.Comment = p.Comment
	}
	return n
}

// Normalize trims the comment and turns a blank comment into null
func (p NotePatch) Normalize() NotePatch {
	if p.HasComment && p.Comment != nil {
		trimmed := strings.TrimSpace(*p.Comment)
		if trimmed == "" {
			p.Comment = nil
		} else {
			p.Comment = &trimmed
		}
	}
	return p
}

// Validate checks the rating range and comment length
func (p NotePatch) Validate() error {
	if p.IsEmpty() {
		return errors.Validation("note payload is empty")
	}
	if p.HasValue && p.Value != nil && (*p.Value < MinRating || *p.Value > MaxRating) {
		return errors.Validationf("rating must be between %d and %d", MinRating, MaxRating)
	}
	if p.HasComment && p.Comment != nil && utf8.RuneCountInString(*p.Comment) > MaxCommentLength {
		return errors.Validationf("comment exceeds %d characters", MaxCommentLength)
	}
	return nil
}

// MarshalJSON writes only the present fields, keeping explicit nulls
func (p NotePatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 3)
	if p.HasValue {
		out["valeur"] = p.Value
	}
	if p.HasComment {
		out["commentaire"] = p.Comment
	}
	if p.TargetParticipantID != nil {
		out["target_participant_id"] = *p.TargetParticipantID
	}
	return json.Marshal(out)
}

// UnmarshalJSON records which fields were present. An empty-string rating
// is read as null; a non-integral rating is a validation error.
func (p *NotePatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = NotePatch{}

	if v, ok := raw["valeur"]; ok {
		p.HasValue = true
		value, err := parseRating(v)
		if err != nil {
			return err
		}
		p.Value = value
	}

	if c, ok := raw["commentaire"]; ok {
		p.HasComment = true
		if !isNull(c) {
			var s string
			if err := json.Unmarshal(c, &s); err != nil {
				return errors.Validation("comment must be a string")
			}
			p.Comment = &s
		}
	}

	if t, ok := raw["target_participant_id"]; ok && !isNull(t) {
		var id int
		if err := json.Unmarshal(t, &id); err != nil {
			return errors.Validation("invalid target participant")
		}
		p.TargetParticipantID = &id
	}
	return nil
}

func parseRating(raw json.RawMessage) (*int, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return nil, errors.Validation("rating must be a number")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Validation("rating must be a number")
	}
	if f != math.Trunc(f) {
		return nil, errors.Validation("rating must be an integer")
	}
	v := int(f)
	return &v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
