package app

import "net/http"

type errCtx struct {
	Code  int
	Title string
	Msg   string
}

func get400(msg string) errCtx {
	return errCtx{
		Code:  http.StatusBadRequest,
		Title: "Bad request",
		Msg:   msg,
	}
}

func get404() errCtx {
	return errCtx{
		Code:  http.StatusNotFound,
		Title: "Not found",
		Msg:   "Sorry, we couldn't find what you were looking for.",
	}
}

func get409() errCtx {
	return errCtx{
		Code:  http.StatusConflict,
		Title: "Conflict",
		Msg:   "A run with this id is already in progress.",
	}
}

func get500() errCtx {
	return errCtx{
		Code:  http.StatusInternalServerError,
		Title: "Internal server error",
		Msg:   "Sorry, there was an internal server error.",
	}
}

func get502() errCtx {
	return errCtx{
		Code:  http.StatusBadGateway,
		Title: "Bad gateway",
		Msg:   "The scoring model returned an unusable answer.",
	}
}

func (c errCtx) resp(err error) *AppResp {
	return &AppResp{Error: err, Message: c.Msg, Code: c.Code}
}
