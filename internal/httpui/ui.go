package httpui

import "net/http"

const indexPath = "/static/index.html"

// Register mounts the front-end: the root redirect and the embedded
// assets under /static/.
func Register(mux *http.ServeMux) error {
	if err := registerAssetRoutes(mux); err != nil {
		return err
	}
	mux.HandleFunc("GET /{$}", redirectIndex)
	return nil
}

func redirectIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, indexPath, http.StatusTemporaryRedirect)
}
