package mocks

//go:generate go run go.uber.org/mock/mockgen -destination=mock_gateway.go -package=mocks github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/gateway Gateway
//go:generate go run go.uber.org/mock/mockgen -destination=mock_storage.go -package=mocks github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage Storage
