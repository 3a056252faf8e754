package auth

import "tradepos-backend/internal/models"

type Permission string

const (
	PermPOS               Permission = "pos"
	PermShifts            Permission = "shifts"
	PermReturns           Permission = "returns"
	PermSalesRead         Permission = "sales:read"
	PermCustomersRead     Permission = "customers:read"
	PermCustomersWrite    Permission = "customers:write"
	PermProductsRead      Permission = "products:read"
	PermProductsWrite     Permission = "products:write"
	PermSuppliersRead     Permission = "suppliers:read"
	PermSuppliersWrite    Permission = "suppliers:write"
	PermStockRead         Permission = "stock:read"
	PermStockWrite        Permission = "stock:write"
	PermTransactionsRead  Permission = "transactions:read"
	PermTransactionsWrite Permission = "transactions:write"
	PermQuotations        Permission = "quotations"
	PermReports           Permission = "reports"
	PermCurrencyWrite     Permission = "currency:write"
	PermAudit             Permission = "audit"
	PermUsers             Permission = "users"
)

// admin is not listed: it holds every permission.
var rolePermissions = map[models.UserRole][]Permission{
	models.RoleCashier: {
		PermPOS, PermShifts, PermReturns, PermSalesRead,
		PermCustomersRead, PermCustomersWrite, PermProductsRead, PermStockRead,
		PermQuotations,
	},
	models.RoleStock: {
		PermProductsRead, PermProductsWrite, PermSuppliersRead, PermSuppliersWrite,
		PermStockRead, PermStockWrite,
	},
	models.RoleViewer: {
		PermSalesRead, PermCustomersRead, PermProductsRead, PermSuppliersRead,
		PermStockRead, PermTransactionsRead, PermReports,
	},
}

// Can reports whether the role holds the permission.
func Can(role models.UserRole, perm Permission) bool {
	if role == models.RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
