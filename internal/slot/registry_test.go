package slot_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateintake/internal/domain"
	"rateintake/internal/slot"
)

func newFile(name string) domain.FileRef {
	return domain.FileRef{ID: uuid.New(), Name: name, Size: 10, ContentType: "application/pdf"}
}

func names(files []domain.FileRef) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestRegistry_Register_Idempotent(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))

	assert.Len(t, r.Slots(), 1)
}

func TestRegistry_Register_ConflictingMultiplicity(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryRateCard, domain.MultiplicitySingle))

	err := r.Register(domain.CategoryRateCard, domain.MultiplicityMultiple)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRegistry_Register_UnknownMultiplicity(t *testing.T) {
	r := slot.NewRegistry()
	err := r.Register(domain.CategoryRateCard, domain.Multiplicity("many"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRegistry_AddFile_SingleReplaces(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryMasterAgreement, domain.MultiplicitySingle))

	first := newFile("msa-v1.pdf")
	files, replaced, err := r.AddFile(domain.CategoryMasterAgreement, first)
	require.NoError(t, err)
	assert.Nil(t, replaced)
	assert.Equal(t, []string{"msa-v1.pdf"}, names(files))

	files, replaced, err = r.AddFile(domain.CategoryMasterAgreement, newFile("msa-v2.pdf"))
	require.NoError(t, err)
	require.NotNil(t, replaced)
	assert.Equal(t, first.ID, replaced.ID)
	assert.Equal(t, []string{"msa-v2.pdf"}, names(files))
}

func TestRegistry_AddFile_MultipleAppends(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))

	for _, n := range []string{"a1.pdf", "a2.pdf", "a3.pdf"} {
		_, replaced, err := r.AddFile(domain.CategoryAmendment, newFile(n))
		require.NoError(t, err)
		assert.Nil(t, replaced)
	}

	files, err := r.Files(domain.CategoryAmendment)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1.pdf", "a2.pdf", "a3.pdf"}, names(files))
}

func TestRegistry_AddFile_UnregisteredCategory(t *testing.T) {
	r := slot.NewRegistry()
	_, _, err := r.AddFile(domain.CategoryRateCard, newFile("rates.xlsx"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRegistry_RemoveFile_PreservesOrder(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))
	for _, n := range []string{"a1.pdf", "a2.pdf", "a3.pdf"} {
		_, _, err := r.AddFile(domain.CategoryAmendment, newFile(n))
		require.NoError(t, err)
	}

	removed, err := r.RemoveFile(domain.CategoryAmendment, 1)
	require.NoError(t, err)
	assert.Equal(t, "a2.pdf", removed.Name)

	files, err := r.Files(domain.CategoryAmendment)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1.pdf", "a3.pdf"}, names(files))
}

func TestRegistry_RemoveFile_OutOfRange(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))

	_, err := r.RemoveFile(domain.CategoryAmendment, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.RemoveFile(domain.CategoryAmendment, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_ReplaceFile_KeepsPosition(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))
	for _, n := range []string{"a1.pdf", "a2.pdf", "a3.pdf"} {
		_, _, err := r.AddFile(domain.CategoryAmendment, newFile(n))
		require.NoError(t, err)
	}

	old, err := r.ReplaceFile(domain.CategoryAmendment, 1, newFile("a2-retry.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "a2.pdf", old.Name)

	files, err := r.Files(domain.CategoryAmendment)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1.pdf", "a2-retry.pdf", "a3.pdf"}, names(files))
}

func TestRegistry_Files_ReturnsCopy(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))
	_, _, err := r.AddFile(domain.CategoryAmendment, newFile("a1.pdf"))
	require.NoError(t, err)

	files, err := r.Files(domain.CategoryAmendment)
	require.NoError(t, err)
	files[0].Name = "mutated.pdf"

	again, err := r.Files(domain.CategoryAmendment)
	require.NoError(t, err)
	assert.Equal(t, "a1.pdf", again[0].Name)
}

func TestRegistry_Reset_KeepsRegistrations(t *testing.T) {
	r := slot.NewRegistry()
	require.NoError(t, r.Register(domain.CategoryMasterAgreement, domain.MultiplicitySingle))
	require.NoError(t, r.Register(domain.CategoryAmendment, domain.MultiplicityMultiple))
	_, _, err := r.AddFile(domain.CategoryMasterAgreement, newFile("msa.pdf"))
	require.NoError(t, err)

	r.Reset()

	slots := r.Slots()
	require.Len(t, slots, 2)
	assert.Equal(t, domain.CategoryMasterAgreement, slots[0].Category)
	assert.Empty(t, slots[0].Files)
	assert.Equal(t, domain.MultiplicityMultiple, slots[1].Multiplicity)
}
