package app

import (
	"github.com/felixbrock/cropadvisory/internal/component"
)

type errCtx struct {
	Code  int
	Title string
	Msg   string
}

func (e errCtx) view() component.ErrorView {
	return component.ErrorView{Code: e.Code, Title: e.Title, Msg: e.Msg}
}

func get400() errCtx {
	return errCtx{
		Code:  400,
		Title: "Bad request",
		Msg:   "Sorry, we could not understand that request.",
	}
}

func get404() errCtx {
	return errCtx{
		Code:  404,
		Title: "Not found",
		Msg:   "Sorry, we couldn't find the page you were looking for.",
	}
}

func get405() errCtx {
	return errCtx{
		Code:  405,
		Title: "Method not allowed",
		Msg:   "Sorry, we couldn't find the page you were looking for.",
	}
}

func get429() errCtx {
	return errCtx{
		Code:  429,
		Title: "Too many requests",
		Msg:   "Please wait a moment before trying again.",
	}
}

func get500() errCtx {
	return errCtx{
		Code:  500,
		Title: "Internal server error",
		Msg:   "Sorry, there was an internal server error.",
	}
}
