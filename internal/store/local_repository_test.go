package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenelnobles/transaction-service/internal/domain"
)

func sampleTransaction(code string) *domain.Transaction {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Transaction{
		ID:                uuid.New(),
		Code:              code,
		Direction:         domain.DirectionOriginToDestination,
		Amount:            decimal.NewFromInt(1000),
		ReceivingAmount:   decimal.NewFromInt(1000),
		Currency:          domain.CurrencyAED,
		CommissionPercent: decimal.NewFromInt(5),
		CommissionAmount:  decimal.NewFromInt(50),
		Method:            domain.MethodAgency,
		Status:            domain.StatusPending,
		Sender:            domain.Party{Name: "Hassan Idris", Phone: "+971500000001", IDDocType: "passport", IDDocNumber: "P1234567"},
		Recipient:         domain.Party{Name: "Mona Idris", Phone: "+249900000001"},
		CreatedBy:         "Fatima",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestLocalRepository_CreateAndFind(t *testing.T) {
	repo, err := NewLocalRepository(filepath.Join(t.TempDir(), "transactions.json"))
	if err != nil {
		t.Fatalf("NewLocalRepository returned error: %v", err)
	}

	tx := sampleTransaction("AB23CD")
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}

	byID, err := repo.FindTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("FindTransactionByID returned error: %v", err)
	}
	if byID.Code != "AB23CD" || byID.Sender.Name != "Hassan Idris" {
		t.Fatalf("unexpected record: %+v", byID)
	}

	byCode, err := repo.FindTransactionByCode(context.Background(), "ab23cd")
	if err != nil {
		t.Fatalf("FindTransactionByCode returned error: %v", err)
	}
	if byCode.ID != tx.ID {
		t.Fatalf("expected the same record by code, got %s", byCode.ID)
	}
}

func TestLocalRepository_DuplicateCodeConflicts(t *testing.T) {
	repo, err := NewLocalRepository(filepath.Join(t.TempDir(), "transactions.json"))
	if err != nil {
		t.Fatalf("NewLocalRepository returned error: %v", err)
	}

	if err := repo.CreateTransaction(context.Background(), sampleTransaction("AB23CD")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err = repo.CreateTransaction(context.Background(), sampleTransaction("ab23cd"))
	if !errors.Is(err, ErrCodeConflict) {
		t.Fatalf("expected ErrCodeConflict for duplicate code, got %v", err)
	}
}

func TestLocalRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")

	repo, err := NewLocalRepository(path)
	if err != nil {
		t.Fatalf("NewLocalRepository returned error: %v", err)
	}
	tx := sampleTransaction("AB23CD")
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}

	reopened, err := NewLocalRepository(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	got, err := reopened.FindTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("FindTransactionByID after reopen returned error: %v", err)
	}
	if got.Code != tx.Code || !got.Amount.Equal(tx.Amount) {
		t.Fatalf("record did not survive reopen: %+v", got)
	}
}

func TestLocalRepository_UpdateAndDelete(t *testing.T) {
	repo, err := NewLocalRepository(filepath.Join(t.TempDir(), "transactions.json"))
	if err != nil {
		t.Fatalf("NewLocalRepository returned error: %v", err)
	}
	tx := sampleTransaction("AB23CD")
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}

	tx.Status = domain.StatusValidated
	if err := repo.UpdateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("UpdateTransaction returned error: %v", err)
	}
	got, err := repo.FindTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("FindTransactionByID returned error: %v", err)
	}
	if got.Status != domain.StatusValidated {
		t.Fatalf("expected validated status after update, got %s", got.Status)
	}

	if err := repo.DeleteTransaction(context.Background(), tx.ID); err != nil {
		t.Fatalf("DeleteTransaction returned error: %v", err)
	}
	if _, err := repo.FindTransactionByID(context.Background(), tx.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound after delete, got %v", err)
	}

	if err := repo.UpdateTransaction(context.Background(), tx); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound updating a deleted record, got %v", err)
	}
}

// blockPersist makes the next write fail by occupying the temp file path
// with a directory.
func blockPersist(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path+".tmp", 0o755); err != nil {
		t.Fatalf("failed to block persist: %v", err)
	}
}

func unblockPersist(t *testing.T, path string) {
	t.Helper()
	if err := os.Remove(path + ".tmp"); err != nil {
		t.Fatalf("failed to unblock persist: %v", err)
	}
}

func TestLocalRepository_FailedWriteRollsBackCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	repo, err := NewLocalRepository(path)
	if err != nil {
		t.Fatalf("NewLocalRepository returned error: %v", err)
	}

	blockPersist(t, path)
	tx := sampleTransaction("AB23CD")
	if err := repo.CreateTransaction(context.Background(), tx); err == nil {
		t.Fatal("expected create to fail when the file cannot be written")
	}

	if _, err := repo.FindTransactionByID(context.Background(), tx.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected the failed create to be rolled back, got %v", err)
	}
	if exists, _ := repo.CodeExists(context.Background(), tx.Code); exists {
		t.Fatal("expected the code to stay free after a failed create")
	}

	unblockPersist(t, path)
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("expected create to succeed once the file is writable, got %v", err)
	}
}

func TestLocalRepository_FailedWriteRollsBackUpdateAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	repo, err := NewLocalRepository(path)
	if err != nil {
		t.Fatalf("NewLocalRepository returned error: %v", err)
	}
	tx := sampleTransaction("AB23CD")
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}

	blockPersist(t, path)

	changed := *tx
	changed.Status = domain.StatusValidated
	if err := repo.UpdateTransaction(context.Background(), &changed); err == nil {
		t.Fatal("expected update to fail when the file cannot be written")
	}
	got, err := repo.FindTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("FindTransactionByID returned error: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("expected the failed update to be rolled back, got status %s", got.Status)
	}

	if err := repo.DeleteTransaction(context.Background(), tx.ID); err == nil {
		t.Fatal("expected delete to fail when the file cannot be written")
	}
	if _, err := repo.FindTransactionByID(context.Background(), tx.ID); err != nil {
		t.Fatalf("expected the record to survive a failed delete, got %v", err)
	}
}

func TestLocalRepository_ListNewestFirstAndCodeExists(t *testing.T) {
	repo, err := NewLocalRepository(filepath.Join(t.TempDir(), "transactions.json"))
	if err != nil {
		t.Fatalf("NewLocalRepository returned error: %v", err)
	}

	older := sampleTransaction("AB23CD")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := sampleTransaction("EF45GH")
	if err := repo.CreateTransaction(context.Background(), older); err != nil {
		t.Fatalf("create older failed: %v", err)
	}
	if err := repo.CreateTransaction(context.Background(), newer); err != nil {
		t.Fatalf("create newer failed: %v", err)
	}

	list, err := repo.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if len(list) != 2 || list[0].Code != "EF45GH" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	exists, err := repo.CodeExists(context.Background(), "ef45gh")
	if err != nil || !exists {
		t.Fatalf("expected code to exist, got %v %v", exists, err)
	}
	exists, err = repo.CodeExists(context.Background(), "ZZ99ZZ")
	if err != nil || exists {
		t.Fatalf("expected code to be free, got %v %v", exists, err)
	}
}
