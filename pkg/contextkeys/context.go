package contextkeys

type contextKey string

// DBContextKey - *gorm.DB запроса: в gin.Context (строкой) и в context.Context
// (например, транзакция, открытая выше по цепочке)
const DBContextKey = contextKey("db")
