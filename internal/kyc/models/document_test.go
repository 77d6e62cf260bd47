package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptedDoc(t DocumentType, status DocumentStatus) *Document {
	return &Document{ID: string(t), UserID: 1, Type: t, Status: status}
}

func TestDeriveDocumentStatus(t *testing.T) {
	t.Run("no documents is pending", func(t *testing.T) {
		assert.Equal(t, DocumentsPending, DeriveDocumentStatus(nil))
	})

	t.Run("partial set is uploaded", func(t *testing.T) {
		docs := []*Document{
			acceptedDoc(DocAadhaarFront, DocVerified),
			acceptedDoc(DocPANCard, DocUploaded),
		}
		assert.Equal(t, DocumentsUploaded, DeriveDocumentStatus(docs))
	})

	t.Run("identity set without income proof is uploaded", func(t *testing.T) {
		docs := []*Document{
			acceptedDoc(DocAadhaarFront, DocVerified),
			acceptedDoc(DocAadhaarBack, DocApproved),
			acceptedDoc(DocPANCard, DocVerified),
		}
		assert.Equal(t, DocumentsUploaded, DeriveDocumentStatus(docs))
	})

	t.Run("full set approves", func(t *testing.T) {
		docs := []*Document{
			acceptedDoc(DocAadhaarFront, DocVerified),
			acceptedDoc(DocAadhaarBack, DocApproved),
			acceptedDoc(DocPANCard, DocVerified),
			acceptedDoc(DocSalarySlip, DocApproved),
		}
		assert.Equal(t, DocumentsApproved, DeriveDocumentStatus(docs))
	})

	t.Run("rejected identity document blocks approval", func(t *testing.T) {
		docs := []*Document{
			acceptedDoc(DocAadhaarFront, DocRejected),
			acceptedDoc(DocAadhaarBack, DocApproved),
			acceptedDoc(DocPANCard, DocVerified),
			acceptedDoc(DocBankStatement, DocVerified),
		}
		assert.Equal(t, DocumentsUploaded, DeriveDocumentStatus(docs))
	})
}

func TestMissingDocuments(t *testing.T) {
	docs := []*Document{
		acceptedDoc(DocAadhaarFront, DocUploaded),
		acceptedDoc(DocSalarySlip, DocUploaded),
	}
	missing := MissingDocuments(docs)
	assert.ElementsMatch(t, []string{"AADHAAR_BACK", "PAN_CARD"}, missing)

	missing = MissingDocuments(nil)
	assert.Contains(t, missing, "SALARY_SLIP or BANK_STATEMENT")
	assert.Len(t, missing, 4)
}

func TestDocumentReplace(t *testing.T) {
	now := time.Now()
	doc, err := NewDocument(1, "a@b.c", DocPANCard, "pan.jpg", "uploads/pan/1.jpg", 1024, "image/jpeg", now)
	require.NoError(t, err)

	t.Run("only rejected documents can be replaced", func(t *testing.T) {
		err := doc.Replace("pan2.jpg", "uploads/pan/2.jpg", 2048, "image/jpeg", now)
		require.Error(t, err)
	})

	t.Run("replace resets verification and review fields", func(t *testing.T) {
		require.NoError(t, doc.Transition(DocRejected))
		doc.AdminRemarks = "blurry scan"
		score := 40.0
		doc.MatchScore = &score

		require.NoError(t, doc.Replace("pan2.jpg", "uploads/pan/2.jpg", 2048, "image/jpeg", now.Add(time.Hour)))
		assert.Equal(t, DocUploaded, doc.Status)
		assert.Equal(t, "pan2.jpg", doc.FileName)
		assert.Empty(t, doc.AdminRemarks)
		assert.Nil(t, doc.MatchScore)
		assert.Nil(t, doc.ReviewedAt)
	})
}

func TestNewDocumentInvariants(t *testing.T) {
	now := time.Now()
	_, err := NewDocument(0, "a@b.c", DocPANCard, "f.jpg", "p", 1, "image/jpeg", now)
	assert.Error(t, err)
	_, err = NewDocument(1, "a@b.c", DocumentType("X"), "f.jpg", "p", 1, "image/jpeg", now)
	assert.Error(t, err)
	_, err = NewDocument(1, "a@b.c", DocPANCard, "", "p", 1, "image/jpeg", now)
	assert.Error(t, err)
}
