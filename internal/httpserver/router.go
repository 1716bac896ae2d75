package httpserver

import (
	"context"

	"smartpos/internal/domain"
	cartsvc "smartpos/internal/service/cart"
	"smartpos/internal/service/identity"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// IdentityService is the credential surface for one principal space.
type IdentityService interface {
	Login(ctx context.Context, handle, secret string) (*identity.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.LoginResult, error)
	Validate(ctx context.Context, token string) error
	Logout(ctx context.Context, token string) error
	ExtractRole(token string) (domain.Role, error)
	ExtractSubject(token string) (string, error)
	Profile(ctx context.Context, token string) (*domain.Principal, error)
	RegisterStaff(ctx context.Context, in identity.RegisterStaffInput, registeredBy string) (*identity.RegisterResult, error)
	RegisterCustomer(ctx context.Context, in identity.RegisterCustomerInput) (*domain.Principal, error)
}

// CartService mutates cart lines and keeps the bill in step.
type CartService interface {
	Add(ctx context.Context, username string, in cartsvc.LineInput) (*domain.CartLine, error)
	Update(ctx context.Context, username string, in cartsvc.LineInput) (*domain.CartLine, error)
	Delete(ctx context.Context, username, lineID string) error
	List(ctx context.Context, username string) ([]domain.CartLine, error)
}

// LedgerService owns running bill totals and payment.
type LedgerService interface {
	ApplyDelta(ctx context.Context, username string, amount float64, cartRef string) (*domain.Bill, error)
	Pay(ctx context.Context, billID, username string, method domain.PaymentMethod, approvedBy string) (*domain.Bill, error)
	View(ctx context.Context, username string) (*domain.Bill, error)
}

// Catalog is the product lookup and registration surface.
type Catalog interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
}

// Deps carries the service implementations wired into the router.
type Deps struct {
	UserIdentity     IdentityService
	CustomerIdentity IdentityService
	Cart             CartService
	Ledger           LedgerService
	Catalog          Catalog
}

func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerIdentityRoutes(router.Group("/user"), deps.UserIdentity, staffRegistration)
	registerIdentityRoutes(router.Group("/customer"), deps.CustomerIdentity, customerRegistration)

	cart := router.Group("/cart")
	{
		cart.GET("/all", listCartHandler(deps))
		cart.POST("/add", addCartHandler(deps))
		cart.PUT("/update", updateCartHandler(deps))
		cart.DELETE("/delete/:id", deleteCartHandler(deps))
	}

	bill := router.Group("/bill")
	{
		bill.GET("/view", viewBillHandler(deps))
		bill.POST("/pay", payBillHandler(deps))
		bill.POST("/update", updateBillHandler(deps))
	}

	product := router.Group("/product")
	{
		product.GET("/all/:barcode", getProductHandler(deps))
		product.POST("/auth/add", addProductHandler(deps))
	}

	return router
}
