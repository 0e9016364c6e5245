package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetImageClearsAnnotation(t *testing.T) {
	uris := []string{"", testImageURI, "data:image/jpeg;base64,AAAA"}
	for _, uri := range uris {
		r := Record{ImageURI: "data:image/png;base64,b2xk", AIAnnotation: "Kết quả cũ"}
		r.SetImage(uri)
		assert.Equal(t, uri, r.ImageURI)
		assert.Empty(t, r.AIAnnotation, "annotation must reset for %q", uri)
	}
}

func TestKind_Statuses(t *testing.T) {
	assert.True(t, KindLab.ValidStatus(StatusSampleTaken))
	assert.False(t, KindLab.ValidStatus(StatusPerformed))
	assert.True(t, KindRadiology.ValidStatus(StatusPerformed))
	assert.False(t, KindRadiology.ValidStatus(StatusSampleTaken))
	assert.False(t, KindLab.ValidStatus("Đang chờ"))
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("radiology")
	require.True(t, ok)
	assert.Equal(t, KindRadiology, k)

	_, ok = ParseKind("pharmacy")
	assert.False(t, ok)
}

func TestKind_View(t *testing.T) {
	v := KindRadiology.View(Record{Status: StatusResulted, AIAnnotation: "**Finding**\nNormal"})
	assert.Equal(t, "badge-resulted", v.BadgeClass)
	assert.Equal(t, KindRadiology, v.Kind)
	require.Len(t, v.Annotation, 2)
	assert.Contains(t, v.AnnotationHTML, "Finding")

	plain := KindLab.View(Record{Status: StatusOrdered})
	assert.Empty(t, plain.AnnotationHTML)
	assert.Equal(t, "badge-ordered", plain.BadgeClass)
}

func TestCanPerform(t *testing.T) {
	assert.True(t, CanPerform(RoleDoctor, ActionCreate, KindLab))
	assert.True(t, CanPerform(RoleLabTechnician, ActionUpdate, KindLab))
	assert.False(t, CanPerform(RoleLabTechnician, ActionUpdate, KindRadiology))
	assert.True(t, CanPerform(RoleRadiologyTechnician, ActionUpdate, KindRadiology))
	assert.True(t, CanPerform(RolePatient, ActionView, KindRadiology))
	assert.False(t, CanPerform(RolePatient, ActionAnalyze, KindLab))
	assert.False(t, CanPerform(RoleReceptionist, ActionDelete, KindLab))
	assert.False(t, CanPerform("janitor", ActionView, KindLab))
	assert.False(t, CanPerform(RoleAdmin, ActionView, "pharmacy"))
}
