package internal

//go:generate mockgen -destination=./mocks/publisher_mock.go -package=mocks github.com/booklog/booklog/internal/events Publisher
//go:generate mockgen -destination=./mocks/resolver_mock.go -package=mocks github.com/booklog/booklog/internal/auth Resolver
