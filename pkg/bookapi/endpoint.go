package bookapi

import "net/http"

// Endpoint describes one HTTP route together with its request and response
// body types. The server registers its routes from these values and the client
// builds its requests from them, so both sides agree on shapes at compile time.
//
// Path uses httprouter syntax; ":name" segments are path parameters.
type Endpoint[Req, Resp any] struct {
	Name   string
	Method string
	Path   string
}

// NoBody marks endpoints that take no request body.
type NoBody struct{}

var (
	ListBooks = Endpoint[NoBody, BooksResponse]{
		Name: "books.list", Method: http.MethodGet, Path: "/books",
	}
	GetBook = Endpoint[NoBody, BookResponse]{
		Name: "books.get", Method: http.MethodGet, Path: "/books/:id",
	}
	CreateBook = Endpoint[CreateBookRequest, BookResponse]{
		Name: "books.create", Method: http.MethodPost, Path: "/books",
	}
	UpdateBook = Endpoint[UpdateBookRequest, BookResponse]{
		Name: "books.update", Method: http.MethodPut, Path: "/books/:id",
	}
	DeleteBook = Endpoint[NoBody, MessageResponse]{
		Name: "books.delete", Method: http.MethodDelete, Path: "/books/:id",
	}
)

// Auth collaborator endpoints, mounted under AuthPrefix.
const AuthPrefix = "/api/auth"

var (
	SignUpEmail = Endpoint[SignUpRequest, SessionResponse]{
		Name: "auth.sign_up", Method: http.MethodPost, Path: AuthPrefix + "/sign-up/email",
	}
	SignInEmail = Endpoint[SignInRequest, SessionResponse]{
		Name: "auth.sign_in", Method: http.MethodPost, Path: AuthPrefix + "/sign-in/email",
	}
	SignOut = Endpoint[NoBody, SuccessResponse]{
		Name: "auth.sign_out", Method: http.MethodPost, Path: AuthPrefix + "/sign-out",
	}
	GetSession = Endpoint[NoBody, *SessionResponse]{
		Name: "auth.get_session", Method: http.MethodGet, Path: AuthPrefix + "/get-session",
	}
)
