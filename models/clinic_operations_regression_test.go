package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"github.com/shopspring/decimal"
)

func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "clinic_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	return ctx
}

func createStaffAndPet(t *testing.T, ctx context.Context) (owner *models.User, vet *models.User, pet *models.Pet) {
	t.Helper()

	owner, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Owner",
		Email:    "owner@test.local",
		Password: "secret123",
		Role:     models.UserRoleOwner,
	})
	if err != nil {
		t.Fatalf("CreateUser(owner): %v", err)
	}

	vet, err = models.CreateUser(ctx, &models.NewUser{
		Name:     "Dr Vet",
		Email:    "vet@test.local",
		Password: "secret123",
		Role:     models.UserRoleVeterinarian,
	})
	if err != nil {
		t.Fatalf("CreateUser(vet): %v", err)
	}

	pet, err = models.CreatePet(ctx, &models.NewPet{
		OwnerId: owner.ID,
		Name:    "Rex",
		Species: "dog",
	})
	if err != nil {
		t.Fatalf("CreatePet: %v", err)
	}
	return owner, vet, pet
}

func tomorrowAt(hour, minute int) time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
}

func TestBookingConflictsAndLifecycle(t *testing.T) {
	ctx := setupIntegration(t)
	owner, vet, pet := createStaffAndPet(t, ctx)

	first, err := models.CreateAppointment(ctx, &models.NewAppointment{
		PetId:           pet.ID,
		UserId:          owner.ID,
		VeterinarianId:  vet.ID,
		AppointmentDate: tomorrowAt(10, 0),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	// Overlapping booking for the same vet must fail with the blocker's id.
	_, err = models.CreateAppointment(ctx, &models.NewAppointment{
		PetId:           pet.ID,
		UserId:          owner.ID,
		VeterinarianId:  vet.ID,
		AppointmentDate: tomorrowAt(10, 15),
		DurationMinutes: 30,
	})
	if !models.IsKind(err, models.ErrConflict) {
		t.Fatalf("overlap: got %v, want conflict", err)
	}

	// Back-to-back is legal.
	second, err := models.CreateAppointment(ctx, &models.NewAppointment{
		PetId:           pet.ID,
		UserId:          owner.ID,
		VeterinarianId:  vet.ID,
		AppointmentDate: tomorrowAt(10, 30),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("back-to-back rejected: %v", err)
	}

	// Cancelling frees the window.
	if _, err := models.CancelAppointment(ctx, first.ID); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}
	rebooked, err := models.CreateAppointment(ctx, &models.NewAppointment{
		PetId:           pet.ID,
		UserId:          owner.ID,
		VeterinarianId:  vet.ID,
		AppointmentDate: tomorrowAt(10, 0),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("rebook over cancelled: %v", err)
	}

	// no_show requires confirmed.
	if _, err := models.MarkNoShowAppointment(ctx, rebooked.ID); !models.IsKind(err, models.ErrInvalidTransition) {
		t.Fatalf("no-show from pending: got %v, want invalid transition", err)
	}
	if _, err := models.ConfirmAppointment(ctx, rebooked.ID); err != nil {
		t.Fatalf("ConfirmAppointment: %v", err)
	}
	if _, err := models.MarkNoShowAppointment(ctx, rebooked.ID); err != nil {
		t.Fatalf("MarkNoShowAppointment: %v", err)
	}

	// Completed appointments cannot be cancelled.
	if _, err := models.CompleteAppointment(ctx, second.ID); err != nil {
		t.Fatalf("CompleteAppointment: %v", err)
	}
	if _, err := models.CancelAppointment(ctx, second.ID); !models.IsKind(err, models.ErrInvalidTransition) {
		t.Fatalf("cancel completed: got %v, want invalid transition", err)
	}
}

func TestInvoiceAtomicityStockAndPayments(t *testing.T) {
	ctx := setupIntegration(t)
	owner, _, pet := createStaffAndPet(t, ctx)

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:            "Flea Shampoo",
		Sku:             "SHAMPOO-001",
		Price:           decimal.RequireFromString("50.00"),
		QuantityInStock: 10,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	productId := product.ID

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		UserId: owner.ID,
		PetId:  &pet.ID,
		Items: []models.LineItemSpec{
			{
				Type:      models.InvoiceItemTypeProduct,
				ProductId: &productId,
				ItemName:  product.Name,
				Quantity:  2,
				UnitPrice: product.Price,
			},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if !invoice.TotalAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("total=%s, want 100.00", invoice.TotalAmount)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Fatalf("invoice number %q missing prefix", invoice.InvoiceNumber)
	}

	// Stock deducted and the movement points back at the invoice.
	product2, err := models.GetProduct(ctx, productId)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if product2.QuantityInStock != 8 {
		t.Fatalf("stock=%d, want 8", product2.QuantityInStock)
	}
	movements, err := models.GetStockMovements(ctx, productId)
	if err != nil {
		t.Fatalf("GetStockMovements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movements=%d, want 1", len(movements))
	}
	m := movements[0]
	if m.Type != models.StockMovementTypeOut || m.Quantity != -2 || m.QuantityBefore != 10 || m.QuantityAfter != 8 {
		t.Fatalf("movement %+v unexpected", m)
	}
	if m.ReferenceKind == nil || *m.ReferenceKind != models.ReferenceKindInvoice || m.ReferenceId == nil || *m.ReferenceId != invoice.ID {
		t.Fatalf("movement reference %+v does not point at invoice %d", m, invoice.ID)
	}

	// Oversell must abort the whole transaction: no invoice, no movement,
	// no stock change.
	var invoicesBefore int64
	db := config.GetDB()
	if err := db.Model(&models.Invoice{}).Count(&invoicesBefore).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}

	_, err = models.CreateInvoice(ctx, &models.NewInvoice{
		UserId: owner.ID,
		Items: []models.LineItemSpec{
			{
				Type:      models.InvoiceItemTypeProduct,
				ProductId: &productId,
				ItemName:  product.Name,
				Quantity:  20,
				UnitPrice: product.Price,
			},
		},
	})
	if !models.IsKind(err, models.ErrInsufficientStock) {
		t.Fatalf("oversell: got %v, want insufficient stock", err)
	}

	var invoicesAfter int64
	if err := db.Model(&models.Invoice{}).Count(&invoicesAfter).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if invoicesAfter != invoicesBefore {
		t.Fatalf("failed invoice persisted: %d -> %d", invoicesBefore, invoicesAfter)
	}
	product3, _ := models.GetProduct(ctx, productId)
	if product3.QuantityInStock != 8 {
		t.Fatalf("stock changed by aborted invoice: %d", product3.QuantityInStock)
	}
	movements, _ = models.GetStockMovements(ctx, productId)
	if len(movements) != 1 {
		t.Fatalf("aborted invoice appended a movement: %d", len(movements))
	}

	// Payments: 50 + 50 on a 100 invoice, then reverse one.
	fifty := decimal.RequireFromString("50.00")

	p1, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: fifty})
	if err != nil {
		t.Fatalf("CreatePayment(1): %v", err)
	}
	after1, _ := models.GetInvoice(ctx, invoice.ID)
	if after1.Status != models.InvoiceStatusPartiallyPaid || !after1.PaidAmount.Equal(fifty) {
		t.Fatalf("after first payment: status=%s paid=%s", after1.Status, after1.PaidAmount)
	}

	p2, err := models.CreatePayment(ctx, &models.NewPayment{InvoiceId: invoice.ID, Amount: fifty})
	if err != nil {
		t.Fatalf("CreatePayment(2): %v", err)
	}
	after2, _ := models.GetInvoice(ctx, invoice.ID)
	if after2.Status != models.InvoiceStatusPaid || !after2.PaidAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("after second payment: status=%s paid=%s", after2.Status, after2.PaidAmount)
	}

	if _, err := models.DeletePayment(ctx, p2.ID); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	after3, _ := models.GetInvoice(ctx, invoice.ID)
	if after3.Status != models.InvoiceStatusPartiallyPaid || !after3.PaidAmount.Equal(fifty) {
		t.Fatalf("after reversal: status=%s paid=%s", after3.Status, after3.PaidAmount)
	}

	if _, err := models.DeletePayment(ctx, p1.ID); err != nil {
		t.Fatalf("DeletePayment(1): %v", err)
	}
	after4, _ := models.GetInvoice(ctx, invoice.ID)
	if after4.Status != models.InvoiceStatusPending || !after4.PaidAmount.IsZero() {
		t.Fatalf("after full reversal: status=%s paid=%s", after4.Status, after4.PaidAmount)
	}
}

func TestStockLedgerNeverNegative(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:            "Syringes",
		Sku:             "SYR-001",
		Price:           decimal.RequireFromString("1.00"),
		QuantityInStock: 5,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	if _, err := models.RemoveStock(ctx, product.ID, 6, "test"); !models.IsKind(err, models.ErrInsufficientStock) {
		t.Fatalf("remove 6 of 5: got %v, want insufficient stock", err)
	}
	if _, err := models.MarkDamaged(ctx, product.ID, 2, "dropped box"); err != nil {
		t.Fatalf("MarkDamaged: %v", err)
	}
	if _, err := models.AddStock(ctx, product.ID, 10, "restock"); err != nil {
		t.Fatalf("AddStock: %v", err)
	}
	if _, err := models.AdjustStock(ctx, product.ID, 12, "recount"); err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}

	// Ledger chain must be contiguous and end at the product's stock.
	movements, err := models.GetStockMovements(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetStockMovements: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("movements=%d, want 3", len(movements))
	}
	// newest first
	for i := len(movements) - 1; i > 0; i-- {
		older, newer := movements[i], movements[i-1]
		if older.QuantityAfter != newer.QuantityBefore {
			t.Fatalf("ledger gap: %d after=%d, next before=%d", older.ID, older.QuantityAfter, newer.QuantityBefore)
		}
		if older.QuantityAfter < 0 || older.QuantityBefore < 0 {
			t.Fatalf("negative quantity in ledger row %d", older.ID)
		}
	}

	final, _ := models.GetProduct(ctx, product.ID)
	if final.QuantityInStock != 12 {
		t.Fatalf("stock=%d, want 12", final.QuantityInStock)
	}
	if movements[0].QuantityAfter != final.QuantityInStock {
		t.Fatalf("latest movement after=%d != stock %d", movements[0].QuantityAfter, final.QuantityInStock)
	}
}

/* docker helpers */

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("clinic-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("clinic-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=clinic_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
